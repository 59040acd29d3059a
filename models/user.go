package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleStudent = "STUDENT"
	RoleAdmin   = "ADMIN"

	StatusActivated   = "ACTIVATED"
	StatusDeactivated = "DEACTIVATED"
)

// User is a chatbot user. TokensUsed and ChatSequence are mutated only via
// atomic $inc updates so concurrent sessions never lose an increment.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           string             `bson:"user_id" json:"user_id"`
	Email            string             `bson:"email" json:"email"`
	Role             string             `bson:"role" json:"role"`
	Status           string             `bson:"status" json:"status"`
	RegistrationDate time.Time          `bson:"registration_date" json:"registration_date"`
	TokensUsed       int64              `bson:"tokens_used" json:"tokens_used"`
	ChatSequence     int64              `bson:"chat_sequence" json:"chat_sequence"`
}

// UsageSummary aggregates ledger figures for the insights endpoints.
type UsageSummary struct {
	TokensUsed   int64   `json:"tokens_used"`
	ChatCount    int64   `json:"chat_count"`
	TotalChats   int64   `json:"total_chats"`
	TokenCeiling int     `json:"token_ceiling"`
	PercentUsed  float64 `json:"percent_used"`
}
