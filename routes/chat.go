package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/models"
	"eduvisor-backend/services"
	"eduvisor-backend/utils"
)

// UserLedger is the slice of the user store the chat endpoints use:
// account lookup plus the atomic usage counters.
type UserLedger interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	GetTokensUsed(ctx context.Context, userID string) (int64, error)
	IncrementChatSequence(ctx context.Context, userID string) (int64, error)
	AddTokensUsed(ctx context.Context, userID string, delta int64) (int64, error)
}

// ChatLog persists and reads back the conversation history.
type ChatLog interface {
	Save(ctx context.Context, entry *models.ChatEntry) error
	GetHistory(ctx context.Context, userID, courseID string) ([]models.ChatEntry, error)
}

// CourseLookup resolves a course id to its record.
type CourseLookup interface {
	Get(ctx context.Context, courseID string) (*models.Course, error)
}

// EnrolmentChecker answers whether a student is on a course's whitelist.
type EnrolmentChecker interface {
	IsEnrolled(ctx context.Context, courseID, email string) (bool, error)
}

// SetupChatRoutes registers the query and history endpoints.
func SetupChatRoutes(router *gin.Engine, cfg *config.Config, chatService *services.ChatService, users UserLedger, chats ChatLog, courses CourseLookup, enrolments EnrolmentChecker) {
	chat := router.Group("/courses/:course_id/chat")

	chat.POST("/query", func(c *gin.Context) {
		courseID := c.Param("course_id")

		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if utf8.RuneCountInString(req.Content) > cfg.MaxQueryChars {
			utils.RespondWithBadRequest(c,
				fmt.Sprintf("Query exceeds the %d character limit", cfg.MaxQueryChars), nil)
			return
		}

		course, err := courses.Get(c.Request.Context(), courseID)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		// Students identify with their university email; the enrolment
		// whitelist is keyed by it.
		enrolled, err := enrolments.IsEnrolled(c.Request.Context(), courseID, req.Author)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		if !enrolled {
			utils.RespondWithError(c, http.StatusForbidden,
				"not_enrolled",
				"You are not enrolled in this course.", nil)
			return
		}

		user, err := users.Get(c.Request.Context(), req.Author)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			utils.RespondWithAppError(c, err)
			return
		}
		if user != nil && user.Status == models.StatusDeactivated {
			utils.RespondWithError(c, http.StatusForbidden,
				"account_deactivated",
				"Your account has been deactivated.", nil)
			return
		}

		// Budget gate before any completion spend.
		tokensUsed, err := users.GetTokensUsed(c.Request.Context(), req.Author)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		if tokensUsed >= int64(cfg.TokenCeiling) {
			utils.RespondWithError(c, http.StatusPaymentRequired,
				"token_limit_exceeded",
				"Token budget exhausted. Contact your course administrator.",
				gin.H{
					"used":    tokensUsed,
					"ceiling": cfg.TokenCeiling,
				})
			return
		}

		answer, err := chatService.Answer(c.Request.Context(), req.Content, req.Author, courseID, course.CourseName)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		resp := models.QueryResponse{
			Reply:      answer.Reply,
			MainTopic:  answer.MainTopic,
			TokensUsed: answer.TokensUsed,
			Timestamp:  time.Now(),
		}

		// The answer already succeeded; failures past this point are
		// reported alongside the reply rather than replacing it.
		seq, err := users.IncrementChatSequence(c.Request.Context(), req.Author)
		if err != nil {
			logger.Error("failed to increment chat sequence", "user_id", req.Author, "error", err)
			resp.LedgerError = "failed to record conversation sequence"
		} else {
			resp.SequenceNumber = seq
			entry := &models.ChatEntry{
				UserID:         req.Author,
				CourseID:       courseID,
				SequenceNumber: seq,
				Query:          req.Content,
				Response:       answer.Reply,
				MainTopic:      answer.MainTopic,
				TokenCost:      answer.TokensUsed,
			}
			if err := chats.Save(c.Request.Context(), entry); err != nil {
				logger.Error("failed to save chat entry", "user_id", req.Author, "error", err)
				resp.HistorySaveError = "failed to save conversation history"
			}
		}

		total, err := users.AddTokensUsed(c.Request.Context(), req.Author, int64(answer.TokensUsed))
		if err != nil {
			logger.Error("failed to update token usage", "user_id", req.Author, "error", err)
			resp.LedgerError = "failed to update token usage"
		} else {
			remaining := int64(cfg.TokenCeiling) - total
			if remaining < 0 {
				remaining = 0
			}
			resp.RemainingTokens = int(remaining)
		}

		c.JSON(http.StatusOK, resp)
	})

	chat.GET("/history", func(c *gin.Context) {
		courseID := c.Param("course_id")
		userID := c.Query("user_id")
		if userID == "" {
			utils.RespondWithBadRequest(c, "user_id query parameter required", nil)
			return
		}

		entries, err := chats.GetHistory(c.Request.Context(), userID, courseID)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"history": entries,
			"total":   len(entries),
		})
	})
}
