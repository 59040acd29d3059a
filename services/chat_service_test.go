package services

import (
	"context"
	"strings"
	"testing"

	"eduvisor-backend/internal/ai"
	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/models"
)

type fakeRetriever struct {
	chunks []models.RetrievedChunk
	err    error
	calls  int
	query  string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query, courseID string) ([]models.RetrievedChunk, error) {
	f.calls++
	f.query = query
	return f.chunks, f.err
}

type fakeCompleter struct {
	completion *ai.Completion
	err        error
	calls      int
	messages   []ai.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.Message) (*ai.Completion, error) {
	f.calls++
	f.messages = messages
	return f.completion, f.err
}

type fakeLastResponse struct {
	response string
	err      error
}

func (f *fakeLastResponse) GetLastResponse(ctx context.Context, userID, courseID string) (string, error) {
	return f.response, f.err
}

func newTestChatService(retriever *fakeRetriever, completer *fakeCompleter, chats *fakeLastResponse) *ChatService {
	return NewChatService(retriever, completer, chats, nil, &config.Config{LLMProvider: "openai"})
}

func TestGreetingShortCircuits(t *testing.T) {
	retriever := &fakeRetriever{}
	completer := &fakeCompleter{}
	svc := newTestChatService(retriever, completer, &fakeLastResponse{})

	for _, query := range []string{"hi", "Hello", "  HI  "} {
		answer, err := svc.Answer(context.Background(), query, "u1", "SC2107", "SC2107 Microcontroller")
		if err != nil {
			t.Fatalf("Answer(%q): %v", query, err)
		}
		want := "Hello! I am a virtual teaching assistant for SC2107 Microcontroller. What questions do you have? :)"
		if answer.Reply != want {
			t.Errorf("Answer(%q) = %q, want %q", query, answer.Reply, want)
		}
		if answer.TokensUsed != 0 {
			t.Errorf("greeting consumed %d tokens, want 0", answer.TokensUsed)
		}
		if answer.MainTopic != "Unknown" {
			t.Errorf("greeting topic = %q, want Unknown", answer.MainTopic)
		}
	}
	if retriever.calls != 0 {
		t.Errorf("greeting triggered %d retrievals, want 0", retriever.calls)
	}
	if completer.calls != 0 {
		t.Errorf("greeting triggered %d completions, want 0", completer.calls)
	}
}

func TestExplainMoreWithoutHistory(t *testing.T) {
	retriever := &fakeRetriever{}
	completer := &fakeCompleter{}
	chats := &fakeLastResponse{err: apperr.NotFoundf("no prior response")}
	svc := newTestChatService(retriever, completer, chats)

	answer, err := svc.Answer(context.Background(), "Can you explain more?", "u1", "SC2107", "SC2107")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Reply != "There was no previous input to explain more on." {
		t.Errorf("reply = %q", answer.Reply)
	}
	if answer.TokensUsed != 0 {
		t.Errorf("tokens = %d, want 0", answer.TokensUsed)
	}
	if retriever.calls != 0 || completer.calls != 0 {
		t.Error("no retrieval or completion should happen without prior history")
	}
}

func TestExplainMoreRewritesQuery(t *testing.T) {
	retriever := &fakeRetriever{chunks: []models.RetrievedChunk{
		{Title: "Interrupts", Page: 4, Content: "NVIC priorities"},
	}}
	completer := &fakeCompleter{completion: &ai.Completion{Text: "deeper answer", TokensUsed: 42}}
	chats := &fakeLastResponse{response: "interrupts preempt the main loop"}
	svc := newTestChatService(retriever, completer, chats)

	answer, err := svc.Answer(context.Background(), "explain more", "u1", "SC2107", "SC2107")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(retriever.query, "interrupts preempt the main loop") {
		t.Errorf("rewritten query does not carry the previous answer: %q", retriever.query)
	}
	if !strings.Contains(retriever.query, "Please go more in depth.") {
		t.Errorf("rewritten query missing the depth instruction: %q", retriever.query)
	}
	if answer.TokensUsed != 42 {
		t.Errorf("tokens = %d, want 42", answer.TokensUsed)
	}
}

func TestNoRelevantContext(t *testing.T) {
	retriever := &fakeRetriever{}
	completer := &fakeCompleter{}
	svc := newTestChatService(retriever, completer, &fakeLastResponse{})

	answer, err := svc.Answer(context.Background(), "what is quantum gravity", "u1", "SC2107", "SC2107")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Reply != "No relevant context found." {
		t.Errorf("reply = %q", answer.Reply)
	}
	if answer.MainTopic != "Unknown" {
		t.Errorf("topic = %q, want Unknown", answer.MainTopic)
	}
	if completer.calls != 0 {
		t.Error("completion must not run without retrieved context")
	}
}

func TestAnswerComposesPrompt(t *testing.T) {
	retriever := &fakeRetriever{chunks: []models.RetrievedChunk{
		{Title: "Timers", Page: 7, Content: "prescaler configuration"},
		{Title: "GPIO", Page: 2, Content: "pin modes"},
	}}
	completer := &fakeCompleter{completion: &ai.Completion{Text: "Answer: timers divide the clock", TokensUsed: 120}}
	svc := newTestChatService(retriever, completer, &fakeLastResponse{})

	answer, err := svc.Answer(context.Background(), "how do timers work", "u1", "SC2107", "SC2107 Microcontroller")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if answer.MainTopic != "Timers" {
		t.Errorf("topic = %q, want Timers (top ranked chunk)", answer.MainTopic)
	}
	if answer.Reply != "timers divide the clock" {
		t.Errorf("reply = %q, role labels should be stripped", answer.Reply)
	}
	if answer.TokensUsed != 120 {
		t.Errorf("tokens = %d, want 120", answer.TokensUsed)
	}

	if len(completer.messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(completer.messages))
	}
	system := completer.messages[0]
	if system.Role != ai.RoleSystem {
		t.Errorf("first message role = %q", system.Role)
	}
	if !strings.Contains(system.Content, "Teaching assistant at NTU") {
		t.Errorf("system message missing persona: %q", system.Content)
	}
	if !strings.Contains(system.Content, "SC2107 Microcontroller") {
		t.Errorf("system message missing course name: %q", system.Content)
	}
	user := completer.messages[1]
	if user.Role != ai.RoleUser {
		t.Errorf("second message role = %q", user.Role)
	}
	if !strings.Contains(user.Content, "Slide Title: Timers, Slide Page: 7\nprescaler configuration\n") {
		t.Errorf("user message missing formatted context: %q", user.Content)
	}
	if !strings.Contains(user.Content, "Query: how do timers work") {
		t.Errorf("user message missing the query: %q", user.Content)
	}
}

func TestRetrieverErrorPropagates(t *testing.T) {
	retriever := &fakeRetriever{err: apperr.Wrap(apperr.KindEmbedding, "embed query", context.DeadlineExceeded)}
	svc := newTestChatService(retriever, &fakeCompleter{}, &fakeLastResponse{})

	_, err := svc.Answer(context.Background(), "how do timers work", "u1", "SC2107", "SC2107")
	if err == nil {
		t.Fatal("expected the retrieval error to propagate")
	}
	if apperr.KindOf(err) != apperr.KindEmbedding {
		t.Errorf("kind = %v, want KindEmbedding", apperr.KindOf(err))
	}
}

func TestCleanResponse(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Answer: the clock divides", "the clock divides"},
		{"System: Human: plain text", "plain text"},
		{"  already clean  ", "already clean"},
	}
	for _, tc := range cases {
		if got := cleanResponse(tc.in); got != tc.want {
			t.Errorf("cleanResponse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
