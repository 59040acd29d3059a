package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/models"
)

// CourseRepository stores the course catalogue.
type CourseRepository struct {
	col *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{col: db.Collection("courses")}
}

// Create adds a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if _, err := r.col.InsertOne(ctx, course); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.New(apperr.KindValidation, "course already exists")
		}
		return apperr.Wrap(apperr.KindPersistence, "insert course", err)
	}
	return nil
}

// Get fetches a course by its id.
func (r *CourseRepository) Get(ctx context.Context, courseID string) (*models.Course, error) {
	var course models.Course
	err := r.col.FindOne(ctx, bson.M{"course_id": courseID}).Decode(&course)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("course %s not found", courseID)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "find course", err)
	}
	return &course, nil
}

// List returns all courses.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list courses", err)
	}
	defer cursor.Close(ctx)

	var courses []models.Course
	if err := cursor.All(ctx, &courses); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decode courses", err)
	}
	return courses, nil
}

// Delete removes a course from the catalogue.
func (r *CourseRepository) Delete(ctx context.Context, courseID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "delete course", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundf("course %s not found", courseID)
	}
	return nil
}
