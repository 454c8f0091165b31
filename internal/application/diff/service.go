// Package diff orchestrates a comparison: cache lookup, the similarity
// short-circuit, single or chunked oracle analysis, span reconciliation,
// consistency enforcement and the asynchronous audit trail.
package diff

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domainDiff "github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/cache"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContextDiff/internal/intelligence/oracle"
	"github.com/turtacn/ContextDiff/internal/intelligence/prompts"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// Execution paths, used as the outcome path and metric label.
const (
	PathCache      = "cache"
	PathSimilarity = "similarity"
	PathSingle     = "single"
	PathChunked    = "chunked"
)

// Service runs comparisons.
type Service interface {
	Compare(ctx context.Context, req domainDiff.ComparisonRequest) (*Outcome, error)
	CacheStats() cache.TieredStats
	ClearCache(ctx context.Context) (int64, error)
	OracleConfigured() bool
}

// VerdictCache memoizes verdicts by input fingerprint. *cache.Tiered
// implements it.
type VerdictCache interface {
	Get(ctx context.Context, original, generated string, s domainDiff.Sensitivity) (*domainDiff.DiffResult, cache.Source)
	Set(ctx context.Context, original, generated string, s domainDiff.Sensitivity, result *domainDiff.DiffResult)
	Clear(ctx context.Context) (int64, error)
	Stats() cache.TieredStats
}

// Config holds the engine tunables.
type Config struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	ChunkThreshold      int     `mapstructure:"chunk_threshold" yaml:"chunk_threshold"`
	ChunkSize           int     `mapstructure:"chunk_size" yaml:"chunk_size"`
	MaxConcurrentChunks int     `mapstructure:"max_concurrent_chunks" yaml:"max_concurrent_chunks"`

	// AnalysisTimeout bounds one shared analysis, independent of the
	// callers waiting on it.
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout" yaml:"analysis_timeout"`

	// MaxTextLength bounds each text in characters; 0 disables the check.
	MaxTextLength int `mapstructure:"max_text_length" yaml:"max_text_length"`
	// FreeTierMaxTotal bounds the combined length of non-premium requests;
	// 0 disables the check.
	FreeTierMaxTotal int `mapstructure:"free_tier_max_total" yaml:"free_tier_max_total"`

	DefaultModel string  `mapstructure:"default_model" yaml:"default_model"`
	PremiumModel string  `mapstructure:"premium_model" yaml:"premium_model"`
	Temperature  float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: domainDiff.DefaultSimilarityThreshold,
		ChunkThreshold:      domainDiff.DefaultChunkThreshold,
		ChunkSize:           domainDiff.DefaultChunkSize,
		MaxConcurrentChunks: 4,
		AnalysisTimeout:     2 * time.Minute,
		MaxTextLength:       20000,
		FreeTierMaxTotal:    15000,
		DefaultModel:        "gpt-4o-mini",
		PremiumModel:        "gpt-4o",
		Temperature:         0.1,
		MaxTokens:           4096,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	if c.ChunkThreshold <= 0 {
		c.ChunkThreshold = d.ChunkThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.MaxConcurrentChunks <= 0 {
		c.MaxConcurrentChunks = d.MaxConcurrentChunks
	}
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = d.AnalysisTimeout
	}
	if c.DefaultModel == "" {
		c.DefaultModel = d.DefaultModel
	}
}

// Outcome is a verdict plus how it was produced. The metadata stays out of
// the DiffResult so that cached and fresh payloads are identical.
type Outcome struct {
	ID           string                    `json:"id"`
	Result       *domainDiff.DiffResult    `json:"result"`
	Path         string                    `json:"path"`
	Model        string                    `json:"model,omitempty"`
	Cached       bool                      `json:"cached"`
	CacheSource  cache.Source              `json:"cache_source,omitempty"`
	Chunked      bool                      `json:"chunked"`
	ChunkCount   int                       `json:"chunk_count,omitempty"`
	FailedChunks int                       `json:"failed_chunks,omitempty"`
	Similarity   float64                   `json:"similarity"`
	Reconcile    domainDiff.ReconcileStats `json:"reconcile"`
	Duration     time.Duration             `json:"duration"`
}

// Option configures the service.
type Option func(*serviceImpl)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *serviceImpl) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

// WithRecorder attaches the audit trail.
func WithRecorder(r *Recorder) Option {
	return func(s *serviceImpl) { s.recorder = r }
}

// WithPromptBuilder overrides the prompt builder.
func WithPromptBuilder(b *prompts.Builder) Option {
	return func(s *serviceImpl) {
		if b != nil {
			s.prompts = b
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(s *serviceImpl) { s.now = now }
}

type serviceImpl struct {
	cfg        Config
	oracle     oracle.Oracle
	cache      VerdictCache
	prompts    *prompts.Builder
	reconciler *domainDiff.Reconciler
	recorder   *Recorder
	metrics    *prometheus.AppMetrics
	logger     logging.Logger
	flight     singleflight.Group
	now        func() time.Time
}

// NewService creates the comparison service. verdicts may be nil to disable
// caching.
func NewService(cfg Config, analyzer oracle.Oracle, verdicts VerdictCache, opts ...Option) Service {
	cfg.applyDefaults()
	if analyzer == nil {
		analyzer = oracle.Unconfigured{}
	}
	if verdicts == nil {
		verdicts = nopCache{}
	}
	s := &serviceImpl{
		cfg:     cfg,
		oracle:  analyzer,
		cache:   verdicts,
		prompts: prompts.MustNewBuilder(prompts.DefaultContextWindow),
		logger:  logging.NewNopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reconciler = domainDiff.NewReconciler(s.logger.Named("reconciler"),
		domainDiff.WithOutcomeObserver(func(_ string, o domainDiff.Outcome) {
			if s.metrics != nil {
				s.metrics.SpansReconciled.WithLabelValues(string(o)).Inc()
			}
		}))
	return s
}

func (s *serviceImpl) OracleConfigured() bool { return oracle.Configured(s.oracle) }

func (s *serviceImpl) CacheStats() cache.TieredStats { return s.cache.Stats() }

func (s *serviceImpl) ClearCache(ctx context.Context) (int64, error) {
	n, err := s.cache.Clear(ctx)
	if err != nil {
		return n, errors.Wrap(err, errors.ErrCodeCacheError, "failed to clear cache")
	}
	s.logger.Info("verdict cache cleared", logging.Int64("entries", n))
	return n, nil
}

// Compare validates req and produces its verdict.
func (s *serviceImpl) Compare(ctx context.Context, req domainDiff.ComparisonRequest) (*Outcome, error) {
	start := s.now()

	sensitivity, err := domainDiff.ParseSensitivity(string(req.Sensitivity))
	if err != nil {
		return nil, err
	}
	req.Sensitivity = sensitivity
	if err := req.Validate(s.cfg.MaxTextLength); err != nil {
		return nil, err
	}
	if !req.UsePremium && s.cfg.FreeTierMaxTotal > 0 && req.TotalLength() > s.cfg.FreeTierMaxTotal {
		return nil, errors.Newf(errors.ErrCodeQuotaExceeded,
			"combined text length exceeds the free tier limit of %d characters", s.cfg.FreeTierMaxTotal).
			WithDetail("set use_premium to analyse longer texts")
	}

	key := cache.Key(req.OriginalText, req.GeneratedText, req.Sensitivity)
	out, err := s.compare(ctx, key, req)
	if err != nil {
		code := errors.GetCode(err)
		prometheus.RecordComparison(s.metrics, string(code), "error", s.now().Sub(start))
		s.logger.Error("comparison failed",
			logging.String("code", string(code)),
			logging.String("request_hash", key),
			logging.Err(err))
		return nil, err
	}

	out.ID = uuid.NewString()
	out.Duration = s.now().Sub(start)
	prometheus.RecordComparison(s.metrics, "success", out.Path, out.Duration)
	prometheus.SetCacheEntries(s.metrics, s.cache.Stats().Size)
	s.logger.Info("comparison completed",
		logging.String("id", out.ID),
		logging.String("path", out.Path),
		logging.Int("risk_score", out.Result.Summary.RiskScore),
		logging.Int("changes", len(out.Result.Changes)),
		logging.Duration("duration", out.Duration))

	if s.recorder != nil {
		s.recorder.Record(s.record(key, req, out))
	}
	return out, nil
}

func (s *serviceImpl) compare(ctx context.Context, key string, req domainDiff.ComparisonRequest) (*Outcome, error) {
	if r, src := s.cache.Get(ctx, req.OriginalText, req.GeneratedText, req.Sensitivity); r != nil {
		prometheus.RecordCacheAccess(s.metrics, string(src))
		return &Outcome{Result: r, Path: PathCache, Cached: true, CacheSource: src}, nil
	}
	prometheus.RecordCacheAccess(s.metrics, "")

	// Identical requests share one analysis. The model is part of the flight
	// key so a joined caller never reports another request's model. The
	// shared work is detached from any single caller; each caller stops
	// waiting when its own context ends.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	flightKey := key + ":" + s.selectModel(req.UsePremium)
	ch := s.flight.DoChan(flightKey, func() (interface{}, error) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.AnalysisTimeout)
		defer cancel()
		return s.analyze(actx, req)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	out := *res.Val.(*Outcome)
	if res.Shared {
		out.Result = out.Result.Clone()
		s.logger.Debug("joined in-flight comparison", logging.String("request_hash", key))
	}
	return &out, nil
}

// analyze runs everything after a cache miss.
func (s *serviceImpl) analyze(ctx context.Context, req domainDiff.ComparisonRequest) (*Outcome, error) {
	o, g := req.OriginalText, req.GeneratedText
	model := s.selectModel(req.UsePremium)

	ratio := domainDiff.SimilarityRatio(o, g)
	if ratio > s.cfg.SimilarityThreshold {
		s.logger.Info("texts nearly identical, skipping analysis", logging.Float64("similarity", ratio))
		result := domainDiff.IdenticalResult()
		s.cache.Set(ctx, o, g, req.Sensitivity, result)
		return &Outcome{Result: result, Path: PathSimilarity, Similarity: ratio}, nil
	}

	out := &Outcome{Path: PathSingle, Model: model, Similarity: ratio}
	if domainDiff.NeedsChunking(o, g, s.cfg.ChunkThreshold) {
		result, stats, err := s.analyzeChunked(ctx, req.Sensitivity, model, o, g)
		if err != nil {
			return nil, err
		}
		out.Path = PathChunked
		out.Chunked = true
		out.Result = result
		out.ChunkCount = stats.chunks
		out.FailedChunks = stats.failed
		out.Reconcile = stats.reconcile
	} else {
		result, stats, err := s.analyzeText(ctx, req.Sensitivity, model, o, g)
		if err != nil {
			return nil, err
		}
		out.Result = result
		out.Reconcile = stats
	}

	if out.Result.EnforceConsistency() {
		s.logger.Warn("is_safe overridden by risk or critical change",
			logging.Int("risk_score", out.Result.Summary.RiskScore))
	}

	// A merge with failed chunks is incomplete; the next request retries it.
	if out.FailedChunks == 0 {
		s.cache.Set(ctx, o, g, req.Sensitivity, out.Result)
	}
	return out, nil
}

// analyzeText asks the oracle about one pair of texts and anchors its claims.
func (s *serviceImpl) analyzeText(ctx context.Context, sensitivity domainDiff.Sensitivity, model, original, generated string) (*domainDiff.DiffResult, domainDiff.ReconcileStats, error) {
	var stats domainDiff.ReconcileStats

	p, err := s.prompts.Build(sensitivity, original, generated)
	if err != nil {
		return nil, stats, errors.Wrap(err, errors.CodeInternal, "failed to build prompt")
	}
	s.logger.Debug("calling oracle",
		logging.String("oracle", s.oracle.Name()),
		logging.String("model", model),
		logging.Int("estimated_tokens", p.EstimatedTokens))

	began := s.now()
	raw, err := s.oracle.Analyze(ctx, oracle.Request{
		System:      p.System,
		User:        p.User,
		Model:       model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	prometheus.RecordOracleCall(s.metrics, model, err, s.now().Sub(began))
	if err != nil {
		return nil, stats, classifyOracleError(ctx, err)
	}

	result, err := domainDiff.DecodeVerdict(raw)
	if err != nil {
		return nil, stats, err
	}
	result.Changes, stats = s.reconciler.ReconcileChanges(result.Changes, original, generated)
	return result, stats, nil
}

func (s *serviceImpl) selectModel(premium bool) string {
	if premium && s.cfg.PremiumModel != "" {
		return s.cfg.PremiumModel
	}
	return s.cfg.DefaultModel
}

func (s *serviceImpl) record(key string, req domainDiff.ComparisonRequest, out *Outcome) *domainDiff.ComparisonRecord {
	return &domainDiff.ComparisonRecord{
		ID:              out.ID,
		RequestHash:     key,
		Sensitivity:     req.Sensitivity,
		UsePremium:      req.UsePremium,
		Model:           out.Model,
		OriginalLength:  len([]rune(req.OriginalText)),
		GeneratedLength: len([]rune(req.GeneratedText)),
		RiskScore:       out.Result.Summary.RiskScore,
		Level:           out.Result.Summary.SemanticChangeLevel,
		IsSafe:          out.Result.Summary.IsSafe,
		ChangeCount:     len(out.Result.Changes),
		Chunked:         out.Chunked,
		ChunkCount:      out.ChunkCount,
		FailedChunks:    out.FailedChunks,
		Cached:          out.Cached,
		CacheSource:     string(out.CacheSource),
		DurationMs:      out.Duration.Milliseconds(),
		CreatedAt:       s.now().UTC(),
		Result:          out.Result.Clone(),
	}
}

// classifyOracleError turns an oracle failure into the AppError reported to
// callers. Caller cancellation is passed through unchanged.
func classifyOracleError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	code := oracle.Code(err)
	return errors.Wrap(err, code, errors.DefaultMessageForCode(code))
}

type nopCache struct{}

func (nopCache) Get(context.Context, string, string, domainDiff.Sensitivity) (*domainDiff.DiffResult, cache.Source) {
	return nil, cache.SourceNone
}

func (nopCache) Set(context.Context, string, string, domainDiff.Sensitivity, *domainDiff.DiffResult) {}

func (nopCache) Clear(context.Context) (int64, error) { return 0, nil }

func (nopCache) Stats() cache.TieredStats { return cache.TieredStats{} }

//Personal.AI order the ending
