package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the application counters and histograms.
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	DocumentsProcessed metric.Int64Counter
	ProcessingDuration metric.Float64Histogram
	ChunksEmbedded     metric.Int64Counter
}

// InitMetrics registers the instruments on the global meter.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("document-qa-platform")

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

	documentsProcessed, err := meter.Int64Counter(
		"documents.processed.total",
		metric.WithDescription("Documents processed by the worker, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	processingDuration, err := meter.Float64Histogram(
		"documents.processing.duration",
		metric.WithDescription("Document processing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksEmbedded, err := meter.Int64Counter(
		"documents.chunks.embedded",
		metric.WithDescription("Chunks embedded and upserted into the index"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:     requestCounter,
		RequestDuration:    requestDuration,
		DocumentsProcessed: documentsProcessed,
		ProcessingDuration: processingDuration,
		ChunksEmbedded:     chunksEmbedded,
	}, nil
}

// RecordProcessing reports one finished worker job.
func (m *Metrics) RecordProcessing(ctx context.Context, outcome string, chunks int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.DocumentsProcessed.Add(ctx, 1, attrs)
	m.ProcessingDuration.Record(ctx, elapsed.Seconds(), attrs)
	if chunks > 0 {
		m.ChunksEmbedded.Add(ctx, int64(chunks))
	}
}
