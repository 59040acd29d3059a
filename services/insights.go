package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/models"
	"eduvisor-backend/repository"
)

// InsightsService produces usage analytics from the ledger and chat log.
type InsightsService struct {
	users  *repository.UserRepository
	chats  *repository.ChatRepository
	config *config.Config
}

func NewInsightsService(users *repository.UserRepository, chats *repository.ChatRepository, cfg *config.Config) *InsightsService {
	return &InsightsService{
		users:  users,
		chats:  chats,
		config: cfg,
	}
}

// UserSummary reports a user's token consumption against the ceiling
// and their chat volume for a course.
func (s *InsightsService) UserSummary(ctx context.Context, userID, courseID string) (*models.UsageSummary, error) {
	tokens, err := s.users.GetTokensUsed(ctx, userID)
	if err != nil {
		return nil, err
	}
	chatCount, err := s.chats.CountByUser(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	totalChats, err := s.users.GetChatSequence(ctx, userID)
	if err != nil {
		return nil, err
	}

	ceiling := s.config.TokenCeiling
	percent := 0.0
	if ceiling > 0 {
		percent = float64(tokens) / float64(ceiling) * 100
	}

	return &models.UsageSummary{
		TokensUsed:   tokens,
		ChatCount:    chatCount,
		TotalChats:   totalChats,
		TokenCeiling: ceiling,
		PercentUsed:  percent,
	}, nil
}

// CourseTopics returns the per-topic query counts for a course, most
// asked-about first.
func (s *InsightsService) CourseTopics(ctx context.Context, courseID string) ([]repository.TopicCount, error) {
	return s.chats.TopicDistribution(ctx, courseID)
}

// ExportCourseReport renders a course's topic distribution and overall
// usage figures as an xlsx workbook.
func (s *InsightsService) ExportCourseReport(ctx context.Context, courseID string) ([]byte, error) {
	topics, err := s.chats.TopicDistribution(ctx, courseID)
	if err != nil {
		return nil, err
	}
	avgTokens, err := s.users.AverageTokensUsed(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("failed to close report workbook", "error", err)
		}
	}()

	sheetName := "Topic Distribution"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "create report sheet", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(sheetName, "A1", "Topic")
	f.SetCellValue(sheetName, "B1", "Queries")
	for i, topic := range topics {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), topic.Topic)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), topic.Count)
	}
	f.SetColWidth(sheetName, "A", "A", 40)

	summarySheet := "Usage"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "create usage sheet", err)
	}

	summaryRows := [][]interface{}{
		{"Course", courseID},
		{"Report Date", time.Now().Format("2006-01-02 15:04:05")},
		{"Distinct Topics", len(topics)},
		{"Average Tokens per User", fmt.Sprintf("%.2f", avgTokens)},
		{"Token Ceiling", s.config.TokenCeiling},
	}
	for i, row := range summaryRows {
		for j, cell := range row {
			cellRef := fmt.Sprintf("%c%d", 'A'+j, i+1)
			f.SetCellValue(summarySheet, cellRef, cell)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "write report workbook", err)
	}
	return buf.Bytes(), nil
}
