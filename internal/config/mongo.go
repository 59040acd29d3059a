package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	ctx := context.Background()

	// Users collection: one record per student/admin, keyed by external id
	usersCollection := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
	}
	_, err := usersCollection.Indexes().CreateMany(ctx, userIndexes)
	if err != nil {
		return err
	}

	// Courses collection
	coursesCollection := db.Collection("courses")
	courseIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = coursesCollection.Indexes().CreateMany(ctx, courseIndexes)
	if err != nil {
		return err
	}

	// Chat history: ordered per (user, course) by sequence number
	chatHistoryCollection := db.Collection("chat_history")
	chatIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "course_id", Value: 1},
				{Key: "sequence_number", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "course_id", Value: 1}},
		},
	}
	_, err = chatHistoryCollection.Indexes().CreateMany(ctx, chatIndexes)
	if err != nil {
		return err
	}

	// Enrolments: one row per (course, student email)
	enrolmentsCollection := db.Collection("enrolments")
	enrolmentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "course_id", Value: 1},
				{Key: "student_email", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "student_email", Value: 1}},
		},
	}
	_, err = enrolmentsCollection.Indexes().CreateMany(ctx, enrolmentIndexes)
	if err != nil {
		return err
	}

	// Admin access requests: at most one pending request per user
	adminRequestsCollection := db.Collection("admin_requests")
	adminIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = adminRequestsCollection.Indexes().CreateMany(ctx, adminIndexes)
	if err != nil {
		return err
	}

	return nil
}
