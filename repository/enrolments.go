package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/models"
)

// EnrolmentRepository stores the per-course student whitelist.
type EnrolmentRepository struct {
	col *mongo.Collection
}

func NewEnrolmentRepository(db *mongo.Database) *EnrolmentRepository {
	return &EnrolmentRepository{col: db.Collection("enrolments")}
}

// AddBatch upserts enrolments for a list of student emails. Existing
// rows are re-enabled rather than duplicated.
func (r *EnrolmentRepository) AddBatch(ctx context.Context, courseID string, emails []string) error {
	if len(emails) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(emails))
	for _, email := range emails {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"course_id": courseID, "student_email": email}).
			SetUpdate(bson.M{"$set": bson.M{"enrolled": true}}).
			SetUpsert(true))
	}

	if _, err := r.col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return apperr.Wrap(apperr.KindPersistence, "bulk upsert enrolments", err)
	}
	return nil
}

// IsEnrolled reports whether the email is whitelisted for the course.
func (r *EnrolmentRepository) IsEnrolled(ctx context.Context, courseID, email string) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{
		"course_id":     courseID,
		"student_email": email,
		"enrolled":      true,
	}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindPersistence, "check enrolment", err)
	}
	return true, nil
}

// List returns all enrolments for a course.
func (r *EnrolmentRepository) List(ctx context.Context, courseID string) ([]models.Enrolment, error) {
	cursor, err := r.col.Find(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list enrolments", err)
	}
	defer cursor.Close(ctx)

	var enrolments []models.Enrolment
	if err := cursor.All(ctx, &enrolments); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decode enrolments", err)
	}
	return enrolments, nil
}

// Remove disables a student's enrolment for a course.
func (r *EnrolmentRepository) Remove(ctx context.Context, courseID, email string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"course_id": courseID, "student_email": email},
		bson.M{"$set": bson.M{"enrolled": false}},
	)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "remove enrolment", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("enrolment for %s in course %s not found", email, courseID)
	}
	return nil
}
