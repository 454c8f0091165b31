package diff

import (
	"context"
	"sync"
	"time"

	domainDiff "github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/prometheus"
)

// DefaultSinkTimeout bounds one sink write.
const DefaultSinkTimeout = 10 * time.Second

// Recorder hands comparison records to every configured sink in the
// background. Sink errors are logged and counted and never reach the caller.
type Recorder struct {
	sinks   []domainDiff.RecordSink
	timeout time.Duration
	logger  logging.Logger
	metrics *prometheus.AppMetrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder creates a recorder over sinks. Nil sinks are skipped.
func NewRecorder(timeout time.Duration, logger logging.Logger, metrics *prometheus.AppMetrics, sinks ...domainDiff.RecordSink) *Recorder {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Recorder{timeout: timeout, logger: logger, metrics: metrics}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// Sinks returns the names of the configured sinks.
func (r *Recorder) Sinks() []string {
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.Name()
	}
	return names
}

// Record starts one write per sink and returns immediately. Records
// arriving after Close are dropped.
func (r *Recorder) Record(rec *domainDiff.ComparisonRecord) {
	if rec == nil || len(r.sinks) == 0 {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("recorder closed, dropping record", logging.String("id", rec.ID))
		return
	}
	r.wg.Add(len(r.sinks))
	r.mu.Unlock()

	for _, sink := range r.sinks {
		go r.write(sink, rec)
	}
}

func (r *Recorder) write(sink domainDiff.RecordSink, rec *domainDiff.ComparisonRecord) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := sink.Record(ctx, rec)
	prometheus.RecordSinkWrite(r.metrics, sink.Name(), err)
	if err != nil {
		r.logger.Error("failed to record comparison",
			logging.String("sink", sink.Name()),
			logging.String("id", rec.ID),
			logging.Err(err))
	}
}

// Close stops accepting records and waits for in-flight writes until ctx
// is done.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
