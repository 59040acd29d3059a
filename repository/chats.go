package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/models"
)

// ChatRepository stores the append-only conversation log.
type ChatRepository struct {
	col *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{col: db.Collection("chat_history")}
}

// Save appends a chat entry.
func (r *ChatRepository) Save(ctx context.Context, entry *models.ChatEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if _, err := r.col.InsertOne(ctx, entry); err != nil {
		return apperr.Wrap(apperr.KindPersistence, "save chat entry", err)
	}
	return nil
}

// GetLastResponse returns the response with the highest sequence number
// for the user and course.
func (r *ChatRepository) GetLastResponse(ctx context.Context, userID, courseID string) (string, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "sequence_number", Value: -1}})

	var entry models.ChatEntry
	err := r.col.FindOne(ctx,
		bson.M{"user_id": userID, "course_id": courseID},
		opts,
	).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", apperr.NotFoundf("no chat history for user %s in course %s", userID, courseID)
		}
		return "", apperr.Wrap(apperr.KindPersistence, "find last response", err)
	}
	return entry.Response, nil
}

// GetHistory returns the user's conversation for a course ordered by
// ascending sequence number.
func (r *ChatRepository) GetHistory(ctx context.Context, userID, courseID string) ([]models.ChatEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequence_number", Value: 1}})

	cursor, err := r.col.Find(ctx,
		bson.M{"user_id": userID, "course_id": courseID},
		opts,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "find chat history", err)
	}
	defer cursor.Close(ctx)

	var entries []models.ChatEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decode chat history", err)
	}
	return entries, nil
}

// TopicCount is a per-topic query tally for the insights endpoints.
type TopicCount struct {
	Topic string `bson:"_id" json:"topic"`
	Count int64  `bson:"count" json:"count"`
}

// TopicDistribution aggregates how often each primary topic was asked
// about within a course. Unattributed chats carry the "Unknown" label.
func (r *ChatRepository) TopicDistribution(ctx context.Context, courseID string) ([]TopicCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"course_id": courseID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$main_topic",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "aggregate topic distribution", err)
	}
	defer cursor.Close(ctx)

	var counts []TopicCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decode topic distribution", err)
	}
	return counts, nil
}

// CountByUser returns how many chat entries the user has across a course.
func (r *ChatRepository) CountByUser(ctx context.Context, userID, courseID string) (int64, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"user_id": userID, "course_id": courseID})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "count chat entries", err)
	}
	return count, nil
}
