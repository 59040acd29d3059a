package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"eduvisor-backend/internal/logger"
	"eduvisor-backend/services"
)

const (
	TaskIndexRebuild = "index:rebuild"
)

type IndexRebuildPayload struct {
	CourseID string `json:"course_id"`
}

// NewIndexRebuildTask builds the queued task for rebuilding a course's
// vector index after its materials change.
func NewIndexRebuildTask(courseID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IndexRebuildPayload{CourseID: courseID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIndexRebuild,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor handles queued work.
type TaskProcessor struct {
	builder *services.IndexBuilder
}

func NewTaskProcessor(builder *services.IndexBuilder) *TaskProcessor {
	return &TaskProcessor{builder: builder}
}

// ProcessIndexRebuild rebuilds the index for the course named in the
// payload. Malformed payloads are not retried.
func (p *TaskProcessor) ProcessIndexRebuild(ctx context.Context, t *asynq.Task) error {
	var payload IndexRebuildPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("rebuilding index", "course_id", payload.CourseID)

	if err := p.builder.Rebuild(ctx, payload.CourseID); err != nil {
		logger.Error("index rebuild failed", "course_id", payload.CourseID, "error", err)
		return err
	}

	return nil
}

// RegisterHandlers wires the processor into an asynq mux.
func (p *TaskProcessor) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskIndexRebuild, p.ProcessIndexRebuild)
}
