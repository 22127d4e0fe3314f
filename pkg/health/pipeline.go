package health

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vjranagit/healthdash/pkg/metrics"
	"github.com/vjranagit/healthdash/pkg/types"
)

// Table labels shown by presentation sinks
const (
	DateColumn      = "Date"
	StepsTitle      = "Daily Step Count"
	StepsColumn     = "Steps"
	HeartRateTitle  = "Average Heart Rate"
	HeartRateColumn = "Avg Heart Rate"
)

// Cache memoizes dashboards by content key. Returned dashboards are shared
// and must be treated as read-only.
type Cache interface {
	// Get returns the cached dashboard and the name of the tier that held it
	Get(key string) (*types.Dashboard, string, bool)
	Put(key string, d *types.Dashboard)
}

// Process runs the full pipeline over one document: parse, extract,
// aggregate each metric by day and label the tables. It holds no state.
func Process(r io.Reader, policy RecordPolicy) (*types.Dashboard, error) {
	dash, _, err := process(r, policy)
	return dash, err
}

func process(r io.Reader, policy RecordPolicy) (*types.Dashboard, *Extraction, error) {
	records, err := ParseDocument(r, IsTracked)
	if err != nil {
		return nil, nil, err
	}

	ext, err := Extract(records, policy)
	if err != nil {
		return nil, nil, err
	}

	return BuildDashboard(ext), ext, nil
}

// BuildDashboard aggregates extracted samples into the two daily tables
func BuildDashboard(ext *Extraction) *types.Dashboard {
	return &types.Dashboard{
		Steps: types.Table{
			Title:       StepsTitle,
			DateColumn:  DateColumn,
			ValueColumn: StepsColumn,
			Rows:        Daily(ext.Steps, types.Sum),
		},
		HeartRate: types.Table{
			Title:       HeartRateTitle,
			DateColumn:  DateColumn,
			ValueColumn: HeartRateColumn,
			Rows:        Daily(ext.HeartRates, types.Mean),
		},
	}
}

// ContentKey derives the cache key for an export. The key changes whenever
// the content or the record policy changes.
func ContentKey(data []byte, policy RecordPolicy) string {
	h := sha256.New()
	h.Write([]byte(policy.String()))
	h.Write([]byte{0})
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Pipeline loads dashboards from sources with optional caching, logging and metrics
type Pipeline struct {
	policy  RecordPolicy
	cache   Cache
	metrics *metrics.Collector
	logger  *zap.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithPolicy sets the malformed-record policy
func WithPolicy(policy RecordPolicy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithCache enables dashboard memoization
func WithCache(c Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithMetrics records load metrics on the collector
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline; by default it aborts on malformed records
// and does not cache
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		policy: Abort,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the configured record policy
func (p *Pipeline) Policy() RecordPolicy {
	return p.policy
}

// Load reads the source and returns its dashboard. Errors from the source,
// the parser and the extractor are returned unchanged.
func (p *Pipeline) Load(src Source) (*types.Dashboard, error) {
	start := time.Now()

	data, err := src.ReadAll()
	if err != nil {
		p.fail(src, err, start)
		return nil, err
	}

	var key string
	if p.cache != nil {
		key = ContentKey(data, p.policy)
		if dash, tier, ok := p.cache.Get(key); ok {
			if p.metrics != nil {
				p.metrics.CacheHits.WithLabelValues(tier).Inc()
				p.metrics.ObserveLoad("cached", time.Since(start))
			}
			p.logger.Debug("Dashboard served from cache",
				zap.String("source", src.Name()),
				zap.String("tier", tier),
			)
			return dash, nil
		}
		if p.metrics != nil {
			p.metrics.CacheMisses.Inc()
		}
	}

	dash, ext, err := process(bytes.NewReader(data), p.policy)
	if err != nil {
		var docErr *MalformedDocumentError
		if errors.As(err, &docErr) && docErr.Source == "" {
			docErr.Source = src.Name()
		}
		p.fail(src, err, start)
		return nil, err
	}

	for _, skipped := range ext.Skipped {
		p.logger.Warn("Skipped malformed record",
			zap.String("source", src.Name()),
			zap.Int("index", skipped.Index),
			zap.Int("line", skipped.Line),
			zap.String("type", skipped.Type),
			zap.String("field", skipped.Field),
		)
	}

	if p.metrics != nil {
		p.metrics.RecordsExtracted.WithLabelValues(types.StepCount).Add(float64(len(ext.Steps)))
		p.metrics.RecordsExtracted.WithLabelValues(types.HeartRate).Add(float64(len(ext.HeartRates)))
		for _, skipped := range ext.Skipped {
			p.metrics.RecordsSkipped.WithLabelValues(skipped.Type, skipped.Field).Inc()
		}
		p.metrics.ObserveLoad("computed", time.Since(start))
	}

	if p.cache != nil {
		p.cache.Put(key, dash)
	}

	p.logger.Info("Dashboard computed",
		zap.String("source", src.Name()),
		zap.Int("bytes", len(data)),
		zap.Int("step_samples", len(ext.Steps)),
		zap.Int("heart_rate_samples", len(ext.HeartRates)),
		zap.Int("skipped", len(ext.Skipped)),
		zap.Int("step_days", len(dash.Steps.Rows)),
		zap.Int("heart_rate_days", len(dash.HeartRate.Rows)),
		zap.Duration("duration", time.Since(start)),
	)

	return dash, nil
}

func (p *Pipeline) fail(src Source, err error, start time.Time) {
	kind := ErrorKind(err)
	if p.metrics != nil {
		p.metrics.LoadErrors.WithLabelValues(kind).Inc()
		p.metrics.ObserveLoad("error", time.Since(start))
	}
	p.logger.Error("Dashboard load failed",
		zap.String("source", src.Name()),
		zap.String("kind", kind),
		zap.Error(err),
	)
}

// ErrorKind classifies a pipeline error for metrics and API responses
func ErrorKind(err error) string {
	var notFound *SourceNotFoundError
	var docErr *MalformedDocumentError
	var recErr *MalformedRecordError
	switch {
	case errors.As(err, &notFound):
		return "source_not_found"
	case errors.As(err, &docErr):
		return "malformed_document"
	case errors.As(err, &recErr):
		return "malformed_record"
	default:
		return "internal"
	}
}
