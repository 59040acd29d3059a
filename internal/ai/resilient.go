package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
)

// resilientCompleter wraps a provider client with a client-side rate
// limiter, a circuit breaker and a bounded retry budget. Configuration
// errors are never retried; everything else gets backoff until the budget
// runs out, then surfaces as a terminal completion error for this request.
type resilientCompleter struct {
	inner      Completer
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	maxRetries int
	backoffMin time.Duration
}

func newResilientCompleter(inner Completer, cfg *config.Config) *resilientCompleter {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "CompletionAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("completion circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// ~1 request/second sustained with small bursts; generous for a single
	// course assistant and well under provider limits.
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &resilientCompleter{
		inner:      inner,
		breaker:    breaker,
		limiter:    limiter,
		maxRetries: cfg.AIMaxRetries,
		backoffMin: cfg.AIRetryBackoff,
	}
}

func (r *resilientCompleter) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	tracer := otel.Tracer("completion-client")
	ctx, span := tracer.Start(ctx, "completion.complete")
	defer span.End()

	span.SetAttributes(attribute.Int("completion.message_count", len(messages)))

	if err := r.limiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("completion.rate_limited", true))
		return nil, apperr.Wrap(apperr.KindCompletion, "rate limiter wait", err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.backoffMin
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(r.maxRetries)), ctx)

	var result *Completion
	operation := func() error {
		out, err := r.breaker.Execute(func() (interface{}, error) {
			return r.inner.Complete(ctx, messages)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || apperr.Is(err, apperr.KindConfiguration) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = out.(*Completion)
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		span.SetAttributes(attribute.Bool("completion.error", true))
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, apperr.Wrap(apperr.KindCompletion, "completion service unavailable", err)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("completion.tokens_used", result.TokensUsed))
	return result, nil
}
