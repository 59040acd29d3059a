package services

import (
	"context"
	"fmt"
	"strings"

	"eduvisor-backend/internal/ai"
	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/telemetry"
	"eduvisor-backend/models"
)

// ContextRetriever is the retrieval surface the chat service depends on.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query, courseID string) ([]models.RetrievedChunk, error)
}

// LastResponseLookup finds the most recent assistant response for a
// user and course, used by the follow-up rewrite.
type LastResponseLookup interface {
	GetLastResponse(ctx context.Context, userID, courseID string) (string, error)
}

// ComposedAnswer is the result of answering a single query.
type ComposedAnswer struct {
	Reply      string
	MainTopic  string
	TokensUsed int
}

// ChatService composes answers from retrieved course context and the
// completion model.
type ChatService struct {
	retriever ContextRetriever
	completer ai.Completer
	chats     LastResponseLookup
	metrics   *telemetry.Metrics
	config    *config.Config
}

// NewChatService creates the answer composer.
func NewChatService(retriever ContextRetriever, completer ai.Completer, chats LastResponseLookup, metrics *telemetry.Metrics, cfg *config.Config) *ChatService {
	return &ChatService{
		retriever: retriever,
		completer: completer,
		chats:     chats,
		metrics:   metrics,
		config:    cfg,
	}
}

var greetingTokens = map[string]bool{
	"hi":    true,
	"hello": true,
}

// Answer produces the assistant reply for a query. Greetings and
// follow-ups with no prior conversation short-circuit without touching
// retrieval or the completion model, costing zero tokens.
func (s *ChatService) Answer(ctx context.Context, query, userID, courseID, courseName string) (*ComposedAnswer, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))

	if greetingTokens[normalized] {
		return &ComposedAnswer{
			Reply:     fmt.Sprintf("Hello! I am a virtual teaching assistant for %s. What questions do you have? :)", courseName),
			MainTopic: "Unknown",
		}, nil
	}

	processedQuery := query
	if strings.Contains(normalized, "explain more") {
		lastResponse, err := s.chats.GetLastResponse(ctx, userID, courseID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return &ComposedAnswer{
					Reply:     "There was no previous input to explain more on.",
					MainTopic: "Unknown",
				}, nil
			}
			return nil, err
		}
		processedQuery = fmt.Sprintf("The user asks this query: %s\n Which is based on your previous answer: %s\n Please go more in depth.", query, lastResponse)
	}

	chunks, err := s.retriever.Retrieve(ctx, processedQuery, courseID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &ComposedAnswer{
			Reply:     "No relevant context found.",
			MainTopic: "Unknown",
		}, nil
	}

	mainTopic := chunks[0].Title
	if mainTopic == "" {
		mainTopic = "Unknown"
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: s.systemMessage(courseName)},
		{Role: ai.RoleUser, Content: buildContextQuery(chunks, processedQuery)},
	}

	completion, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordQueryAnswered(courseID)
		s.metrics.RecordTokensUsed(int64(completion.TokensUsed), s.config.LLMProvider)
	}

	return &ComposedAnswer{
		Reply:      cleanResponse(completion.Text),
		MainTopic:  mainTopic,
		TokensUsed: completion.TokensUsed,
	}, nil
}

// systemMessage joins the assistant's persona, task, constraints and
// output style in that order.
func (s *ChatService) systemMessage(courseName string) string {
	persona := "You are a Teaching assistant at NTU."
	task := fmt.Sprintf("Answer queries on %s.", courseName)
	conditions := fmt.Sprintf("If user asks any query beyond %s, do not craft an answer but tell the user you are not an expert on the topic. ", courseName)
	outputStyle := "Use at most 15 sentences for your response. Respond like you are explaining it to a student."

	return strings.Join([]string{persona, task, conditions, outputStyle}, " ")
}

// formatContexts renders the retrieved chunks in ranking order with
// their slide provenance.
func formatContexts(chunks []models.RetrievedChunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(fmt.Sprintf("Slide Title: %s, Slide Page: %d\n%s\n", chunk.Title, chunk.Page, chunk.Content))
	}
	return b.String()
}

func buildContextQuery(chunks []models.RetrievedChunk, query string) string {
	return fmt.Sprintf(`
Answer query based on context provided.

Context:
%s
Query: %s

Response Formatting Guidelines:
- Use paragraphs to separate key ideas.
- Be as concise as possible and answer the question to the best of your ability.
- If the query is within the course scope, include the slide title and page used in brackets at the end of the whole response.
`, formatContexts(chunks), query)
}

// cleanResponse strips role-label artifacts the model sometimes echoes.
func cleanResponse(text string) string {
	replacer := strings.NewReplacer("System:", "", "Human:", "", "Answer:", "")
	return strings.TrimSpace(replacer.Replace(text))
}
