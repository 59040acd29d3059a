package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics.
type Metrics struct {
	RequestCounter    metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	TokensUsed        metric.Int64Counter
	QueriesAnswered   metric.Int64Counter
	IndexBuilds       metric.Int64Counter
	PDFProcessingTime metric.Float64Histogram
	RetrievalDuration metric.Float64Histogram
}

// InitMetrics initializes all application metrics.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("eduvisor-backend")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"llm.tokens.used",
		metric.WithDescription("Total completion tokens billed against user budgets"),
	)
	if err != nil {
		return nil, err
	}

	queriesAnswered, err := meter.Int64Counter(
		"chat.queries.answered",
		metric.WithDescription("Total chat queries answered"),
	)
	if err != nil {
		return nil, err
	}

	indexBuilds, err := meter.Int64Counter(
		"vectorstore.index.builds",
		metric.WithDescription("Total course index rebuilds"),
	)
	if err != nil {
		return nil, err
	}

	pdfProcessingTime, err := meter.Float64Histogram(
		"pdf.processing.duration",
		metric.WithDescription("PDF processing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	retrievalDuration, err := meter.Float64Histogram(
		"retrieval.duration",
		metric.WithDescription("Context retrieval duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		TokensUsed:        tokensUsed,
		QueriesAnswered:   queriesAnswered,
		IndexBuilds:       indexBuilds,
		PDFProcessingTime: pdfProcessingTime,
		RetrievalDuration: retrievalDuration,
	}, nil
}

// RecordRequest records HTTP request metrics.
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records completion token usage by provider model.
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.model", model),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordQueryAnswered records an answered chat query for a course.
func (m *Metrics) RecordQueryAnswered(courseID string) {
	attrs := []attribute.KeyValue{
		attribute.String("course.id", courseID),
	}

	m.QueriesAnswered.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordIndexBuild records a course index rebuild outcome.
func (m *Metrics) RecordIndexBuild(courseID string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("course.id", courseID),
		attribute.Bool("build.success", success),
	}

	m.IndexBuilds.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordPDFProcessing records PDF extraction metrics.
func (m *Metrics) RecordPDFProcessing(duration float64, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("pdf.status", status),
	}

	m.PDFProcessingTime.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordRetrieval records a context retrieval duration.
func (m *Metrics) RecordRetrieval(duration float64, courseID string) {
	attrs := []attribute.KeyValue{
		attribute.String("course.id", courseID),
	}

	m.RetrievalDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}
