package research

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/apresai/researchcast/internal/research")

// Collector turns a topic into a Bundle using one search call.
type Collector struct {
	searcher Searcher
	cache    Cache
	keywords int
	log      *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithCache enables result caching. Cache failures are logged, never returned.
func WithCache(c Cache) Option {
	return func(col *Collector) { col.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(col *Collector) { col.log = l }
}

// WithKeywordCount overrides DefaultKeywordCount.
func WithKeywordCount(n int) Option {
	return func(col *Collector) { col.keywords = n }
}

func NewCollector(s Searcher, opts ...Option) *Collector {
	c := &Collector{searcher: s, keywords: DefaultKeywordCount, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect searches for topic and returns the results with their keyword
// analysis. Failures are not retried here.
func (c *Collector) Collect(ctx context.Context, topic string) (*Bundle, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	ctx, span := tracer.Start(ctx, "research.collect")
	defer span.End()
	span.SetAttributes(attribute.String("research.topic", topic))

	if c.cache != nil {
		b, ok, err := c.cache.Get(ctx, topic)
		switch {
		case err != nil:
			c.log.WarnContext(ctx, "Research cache read failed", "error", err)
		case ok:
			span.SetAttributes(attribute.Bool("research.cache_hit", true))
			c.log.DebugContext(ctx, "Research cache hit", "topic", topic)
			return b, nil
		}
	}

	results, err := c.searcher.Search(ctx, topic)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}

	b := NewBundle(topic, results, TopKeywords(results, c.keywords))
	span.SetAttributes(attribute.Int("research.results", len(results)))
	c.log.InfoContext(ctx, "Research collected", "topic", topic, "results", len(results), "keywords", b.TopKeywords())

	if c.cache != nil {
		if err := c.cache.Set(ctx, topic, b); err != nil {
			c.log.WarnContext(ctx, "Research cache write failed", "error", err)
		}
	}
	return b, nil
}
