package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatEntry is one question/answer exchange, append-only and ordered per
// (user, course) by SequenceNumber. The most recent response for a user and
// course is the entry with the highest sequence number.
type ChatEntry struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	CourseID       string             `bson:"course_id" json:"course_id"`
	SequenceNumber int64              `bson:"sequence_number" json:"sequence_number"`
	Query          string             `bson:"query" json:"query"`
	Response       string             `bson:"response" json:"response"`
	MainTopic      string             `bson:"main_topic" json:"main_topic"`
	TokenCost      int                `bson:"token_cost" json:"token_cost"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}

// QueryRequest is the post-shaped body accepted by the query endpoint.
// Content carries the question; Author identifies the asking user.
type QueryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required,min=1"`
	Author  string `json:"author" binding:"required"`
}

// QueryResponse is returned by the query endpoint.
type QueryResponse struct {
	Reply           string    `json:"reply"`
	MainTopic       string    `json:"main_topic"`
	TokensUsed      int       `json:"tokens_used"`
	RemainingTokens int       `json:"remaining_tokens"`
	SequenceNumber  int64     `json:"sequence_number"`
	Timestamp       time.Time `json:"timestamp"`

	// Set when the answer succeeded but a follow-up write failed; the
	// two failure modes are reported separately because one loses
	// conversation history and the other only loses accounting.
	HistorySaveError string `json:"history_save_error,omitempty"`
	LedgerError      string `json:"ledger_error,omitempty"`
}
