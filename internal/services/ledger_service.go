package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ErrNotOpen is returned by Append before Open has loaded the ledger.
var ErrNotOpen = errors.New("ledger service not opened")

// Publisher announces appended entries.
type Publisher interface {
	PublishEntryAppended(ctx context.Context, msg *amqp.EntryAppendedMessage) error
}

// Metrics is the subset of the metrics recorder used by the service.
type Metrics interface {
	EntryAppended(kind core.Kind, ledgerLen int)
	EntryRejected(err error)
	LedgerLoaded(ledgerLen int)
	ObserveSave(backend string, d time.Duration)
}

type reportKey struct {
	revision int
	goal     string
}

// LedgerService owns the ledger for one running session. Entries are
// validated, then persisted, and only then become visible to readers.
type LedgerService struct {
	store     sheets.LedgerStore
	backend   string
	publisher Publisher
	metrics   Metrics
	logger    *log.Logger
	closers   []io.Closer

	mu     sync.RWMutex
	ledger core.Ledger
	opened bool

	loads   singleflight.Group
	reports *cache.LRU[reportKey, core.Report]
}

type Option func(*LedgerService)

// WithPublisher publishes an EntryAppended event after every append.
func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithMetrics(m Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// WithBackendName labels save metrics and logs.
func WithBackendName(name string) Option {
	return func(s *LedgerService) { s.backend = name }
}

// WithClosers registers resources released by Close, in order.
func WithClosers(c ...io.Closer) Option {
	return func(s *LedgerService) { s.closers = append(s.closers, c...) }
}

// WithReportCache bounds the number of memoised reports and how long an
// unused one is kept. A zero ttl keeps reports until evicted by size.
func WithReportCache(size int, ttl time.Duration) Option {
	return func(s *LedgerService) { s.reports = cache.NewLRU[reportKey, core.Report](size, ttl) }
}

func NewLedgerService(store sheets.LedgerStore, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:   store,
		backend: "unknown",
		metrics: noopMetrics{},
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
		reports: cache.NewLRU[reportKey, core.Report](32, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the persisted ledger into the session. Concurrent calls share
// a single load.
func (s *LedgerService) Open(ctx context.Context) error {
	_, err, _ := s.loads.Do("load", func() (any, error) {
		l, err := s.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		s.mu.Lock()
		s.ledger = l
		s.opened = true
		s.mu.Unlock()

		s.metrics.LedgerLoaded(l.Len())
		s.logger.InfoContext(ctx, "Ledger loaded",
			log.FieldBackend, s.backend,
			log.FieldRevision, l.Revision())
		return nil, nil
	})
	return err
}

// Append validates e, persists the extended ledger and commits it. On any
// error the session ledger is left exactly as it was. Publishing the event
// happens after the commit and its failure is only logged.
func (s *LedgerService) Append(ctx context.Context, e core.Entry) (core.Ledger, error) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return core.Ledger{}, ErrNotOpen
	}
	current := s.ledger
	next, err := current.Append(e)
	if err != nil {
		s.mu.Unlock()
		s.metrics.EntryRejected(err)
		s.logger.WarnContext(ctx, "Entry rejected", log.NewFields().WithEntry(e).WithError(err).ToSlice()...)
		return current, err
	}

	start := time.Now()
	if err := s.store.Save(ctx, next); err != nil {
		s.mu.Unlock()
		s.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.NewFields().WithOperation(log.OpSave).WithError(err).WithRevision(next.Revision()).ToSlice()...)
		return current, fmt.Errorf("save ledger: %w", err)
	}
	s.metrics.ObserveSave(s.backend, time.Since(start))
	s.ledger = next
	s.mu.Unlock()

	s.metrics.EntryAppended(e.Kind, next.Len())
	s.logger.WithContext(ctx).InfoContext(ctx, "Entry appended",
		log.NewFields().WithEntry(e).WithRevision(next.Revision()).ToSlice()...)

	s.publish(ctx, int64(next.Len()), e)
	return next, nil
}

func (s *LedgerService) publish(ctx context.Context, seq int64, e core.Entry) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewEntryAppendedMessage(seq, e)
	if err := s.publisher.PublishEntryAppended(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish entry appended message",
			log.FieldMessageID, msg.ID, "seq", seq, log.FieldError, err)
	}
}

// Snapshot returns the current ledger. The value is immutable and safe to
// use after later appends.
func (s *LedgerService) Snapshot() core.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger
}

// Report returns every derived view of the current ledger for goal. Reports
// are memoised per (revision, goal); a new append changes the revision, so a
// cached report always matches the ledger it was built from.
func (s *LedgerService) Report(goal decimal.Decimal) core.Report {
	l := s.Snapshot()
	key := reportKey{revision: l.Revision(), goal: goal.String()}
	return s.reports.GetOrCompute(key, func() core.Report { return l.Report(goal) })
}

// ReportCache exposes the report cache for periodic expiry.
func (s *LedgerService) ReportCache() cache.Cleaner {
	return s.reports
}

// Ready reports whether the ledger has been loaded.
func (s *LedgerService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opened
}

// Close releases the registered resources.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) EntryAppended(core.Kind, int)      {}
func (noopMetrics) EntryRejected(error)               {}
func (noopMetrics) LedgerLoaded(int)                  {}
func (noopMetrics) ObserveSave(string, time.Duration) {}
