package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"eduvisor-backend/internal/ai"
	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/models"
	"eduvisor-backend/services"
)

type stubLedger struct {
	tokens   int64
	incCalls int
	addCalls int
}

func (s *stubLedger) Get(ctx context.Context, userID string) (*models.User, error) {
	return nil, apperr.NotFoundf("user %s not found", userID)
}

func (s *stubLedger) GetTokensUsed(ctx context.Context, userID string) (int64, error) {
	return s.tokens, nil
}

func (s *stubLedger) IncrementChatSequence(ctx context.Context, userID string) (int64, error) {
	s.incCalls++
	return int64(s.incCalls), nil
}

func (s *stubLedger) AddTokensUsed(ctx context.Context, userID string, delta int64) (int64, error) {
	s.addCalls++
	s.tokens += delta
	return s.tokens, nil
}

type stubChatLog struct {
	saved []models.ChatEntry
}

func (s *stubChatLog) Save(ctx context.Context, entry *models.ChatEntry) error {
	s.saved = append(s.saved, *entry)
	return nil
}

func (s *stubChatLog) GetHistory(ctx context.Context, userID, courseID string) ([]models.ChatEntry, error) {
	return s.saved, nil
}

type stubCourses struct{}

func (stubCourses) Get(ctx context.Context, courseID string) (*models.Course, error) {
	return &models.Course{CourseID: courseID, CourseName: "SC2107 Microcontroller"}, nil
}

type stubEnrolments struct{ enrolled bool }

func (s stubEnrolments) IsEnrolled(ctx context.Context, courseID, email string) (bool, error) {
	return s.enrolled, nil
}

type stubRetriever struct{ chunks []models.RetrievedChunk }

func (s *stubRetriever) Retrieve(ctx context.Context, query, courseID string) ([]models.RetrievedChunk, error) {
	return s.chunks, nil
}

type stubCompleter struct{ calls int }

func (s *stubCompleter) Complete(ctx context.Context, messages []ai.Message) (*ai.Completion, error) {
	s.calls++
	return &ai.Completion{Text: "an answer", TokensUsed: 10}, nil
}

type stubLookup struct{}

func (stubLookup) GetLastResponse(ctx context.Context, userID, courseID string) (string, error) {
	return "", apperr.NotFoundf("no prior response")
}

func newChatTestRouter(cfg *config.Config, ledger *stubLedger, completer *stubCompleter, retriever *stubRetriever) *gin.Engine {
	gin.SetMode(gin.TestMode)

	chatService := services.NewChatService(retriever, completer, stubLookup{}, nil, cfg)

	router := gin.New()
	SetupChatRoutes(router, cfg, chatService, ledger, &stubChatLog{}, stubCourses{}, stubEnrolments{enrolled: true})
	return router
}

func postQuery(router *gin.Engine, content string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(models.QueryRequest{
		Title:   "question",
		Content: content,
		Author:  "student@e.ntu.edu.sg",
	})
	req := httptest.NewRequest(http.MethodPost, "/courses/SC2107/chat/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestQueryRejectedAtTokenCeiling(t *testing.T) {
	cfg := &config.Config{MaxQueryChars: 400, TokenCeiling: 150000, LLMProvider: "openai"}
	ledger := &stubLedger{tokens: 150000}
	completer := &stubCompleter{}
	router := newChatTestRouter(cfg, ledger, completer, &stubRetriever{})

	w := postQuery(router, "how do timers work")

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusPaymentRequired)
	}
	if !strings.Contains(w.Body.String(), "token_limit_exceeded") {
		t.Errorf("body missing error code: %s", w.Body.String())
	}
	if completer.calls != 0 {
		t.Errorf("completion ran %d times despite an exhausted budget", completer.calls)
	}
	if ledger.incCalls != 0 || ledger.addCalls != 0 {
		t.Errorf("ledger mutated by a rejected request: inc=%d add=%d", ledger.incCalls, ledger.addCalls)
	}
	if ledger.tokens != 150000 {
		t.Errorf("token count changed to %d", ledger.tokens)
	}
}

func TestQueryAnsweredBelowCeiling(t *testing.T) {
	cfg := &config.Config{MaxQueryChars: 400, TokenCeiling: 150000, LLMProvider: "openai"}
	ledger := &stubLedger{tokens: 149999}
	completer := &stubCompleter{}
	retriever := &stubRetriever{chunks: []models.RetrievedChunk{
		{Title: "Timers", Page: 7, Content: "prescaler configuration"},
	}}
	router := newChatTestRouter(cfg, ledger, completer, retriever)

	w := postQuery(router, "how do timers work")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if completer.calls != 1 {
		t.Errorf("completion ran %d times, want 1", completer.calls)
	}
	if ledger.incCalls != 1 || ledger.addCalls != 1 {
		t.Errorf("ledger updates: inc=%d add=%d, want 1 and 1", ledger.incCalls, ledger.addCalls)
	}

	var resp models.QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RemainingTokens != 0 {
		t.Errorf("remaining tokens = %d, want 0 (clamped)", resp.RemainingTokens)
	}
	if resp.SequenceNumber != 1 {
		t.Errorf("sequence = %d, want 1", resp.SequenceNumber)
	}
}

func TestQueryLimitCountsRunes(t *testing.T) {
	cfg := &config.Config{MaxQueryChars: 400, TokenCeiling: 150000, LLMProvider: "openai"}
	router := newChatTestRouter(cfg, &stubLedger{}, &stubCompleter{}, &stubRetriever{})

	// 400 runes of CJK text is 1200 bytes; it must not trip the limit.
	w := postQuery(router, strings.Repeat("微", 400))
	if w.Code != http.StatusOK {
		t.Fatalf("multi-byte query at the limit: status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp models.QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "No relevant context found." {
		t.Errorf("reply = %q", resp.Reply)
	}

	w = postQuery(router, strings.Repeat("a", 401))
	if w.Code != http.StatusBadRequest {
		t.Errorf("oversized query: status = %d, want 400", w.Code)
	}
}

func TestQueryRequiresEnrolment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{MaxQueryChars: 400, TokenCeiling: 150000, LLMProvider: "openai"}
	completer := &stubCompleter{}
	chatService := services.NewChatService(&stubRetriever{}, completer, stubLookup{}, nil, cfg)

	router := gin.New()
	SetupChatRoutes(router, cfg, chatService, &stubLedger{}, &stubChatLog{}, stubCourses{}, stubEnrolments{enrolled: false})

	w := postQuery(router, "how do timers work")

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if !strings.Contains(w.Body.String(), "not_enrolled") {
		t.Errorf("body missing error code: %s", w.Body.String())
	}
	if completer.calls != 0 {
		t.Errorf("completion ran for an unenrolled student")
	}
}
