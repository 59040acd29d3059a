package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/models"
)

// AdminRequestRepository stores pending requests for admin access.
type AdminRequestRepository struct {
	col *mongo.Collection
}

func NewAdminRequestRepository(db *mongo.Database) *AdminRequestRepository {
	return &AdminRequestRepository{col: db.Collection("admin_requests")}
}

// Create records a pending request. A user may only have one open
// request at a time.
func (r *AdminRequestRepository) Create(ctx context.Context, req *models.AdminRequest) error {
	req.RequestDate = time.Now()
	if _, err := r.col.InsertOne(ctx, req); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.New(apperr.KindValidation, "admin request already pending for this user")
		}
		return apperr.Wrap(apperr.KindPersistence, "insert admin request", err)
	}
	return nil
}

// List returns all pending requests, oldest first.
func (r *AdminRequestRepository) List(ctx context.Context) ([]models.AdminRequest, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list admin requests", err)
	}
	defer cursor.Close(ctx)

	var requests []models.AdminRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decode admin requests", err)
	}
	return requests, nil
}

// Delete removes a request once it has been approved or rejected.
func (r *AdminRequestRepository) Delete(ctx context.Context, userID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "delete admin request", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundf("admin request for user %s not found", userID)
	}
	return nil
}
