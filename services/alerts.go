package services

import (
	"context"

	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/repository"
)

// AlertEvaluator scans the usage ledger for users approaching or past
// the token ceiling and logs alerts for operators.
type AlertEvaluator struct {
	config *config.Config
	users  *repository.UserRepository
}

func NewAlertEvaluator(cfg *config.Config, users *repository.UserRepository) *AlertEvaluator {
	return &AlertEvaluator{
		config: cfg,
		users:  users,
	}
}

// ScanAllUsers logs a warning for every user over the warn threshold
// and an error for every user over the critical threshold.
func (a *AlertEvaluator) ScanAllUsers(ctx context.Context) error {
	ceiling := int64(a.config.TokenCeiling)
	if ceiling == 0 {
		return nil
	}

	warnThreshold := ceiling * int64(a.config.TokenWarnPercent) / 100
	criticalThreshold := ceiling * int64(a.config.TokenCriticalPercent) / 100

	users, err := a.users.ListOverBudget(ctx, warnThreshold)
	if err != nil {
		return err
	}

	for _, user := range users {
		percent := float64(user.TokensUsed) / float64(ceiling) * 100
		switch {
		case user.TokensUsed >= ceiling:
			logger.Error("user token budget exhausted",
				"user_id", user.UserID, "tokens_used", user.TokensUsed, "ceiling", ceiling)
		case user.TokensUsed >= criticalThreshold:
			logger.Error("user token budget critical",
				"user_id", user.UserID, "tokens_used", user.TokensUsed, "percent", percent)
		default:
			logger.Warn("user token budget high",
				"user_id", user.UserID, "tokens_used", user.TokensUsed, "percent", percent)
		}
	}

	return nil
}
