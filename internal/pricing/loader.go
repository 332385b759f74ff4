package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
)

// Load sources, in the order failures are reported
const (
	SourceAvailability = "availability"
	SourcePriceSlots   = "price_slots"
	SourceDeals        = "deals"
)

// ErrStaleLoad is returned by a load that finished after a newer load was started
var ErrStaleLoad = errors.New("snapshot load superseded by a newer load")

// LoadError reports which record set failed to load
type LoadError struct {
	Source  string
	Listing domain.ListingRef
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s for %s: %v", e.Source, e.Listing, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// CalendarSource is the read side of the calendar repository
type CalendarSource interface {
	FetchAvailability(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.AvailabilityRecord, error)
	FetchPriceSlots(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.PriceSlot, error)
	FetchActiveDeals(ctx context.Context, ref *domain.ListingRef, start, end *domain.Date) ([]domain.TimeBoundDeal, error)
}

// Query selects the listing and inclusive date range to load
type Query struct {
	Listing domain.ListingRef
	Start   domain.Date
	End     domain.Date
}

// Validate checks the listing and range
func (q Query) Validate() error {
	if q.Listing.IsZero() {
		return domain.ErrInvalidListingID
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return domain.ErrInvalidDate
	}
	if q.End.Before(q.Start) {
		return domain.ErrInvalidDateRange
	}
	return nil
}

// Days returns the number of dates in the range
func (q Query) Days() int {
	return q.Start.DaysUntil(q.End) + 1
}

// SnapshotLoader loads evaluator snapshots. Every Load takes a new generation
// and only the most recently started load may replace the current snapshot.
// A failed load leaves the previous snapshot in place.
type SnapshotLoader struct {
	source     CalendarSource
	log        *logger.Logger
	generation atomic.Uint64

	mu      sync.RWMutex
	current *Evaluator
	lastErr error
}

// NewSnapshotLoader creates a loader over source
func NewSnapshotLoader(source CalendarSource, log *logger.Logger) *SnapshotLoader {
	if log == nil {
		log = logger.Get()
	}
	return &SnapshotLoader{
		source:  source,
		log:     log,
		current: NewEvaluator(domain.ListingRef{}, Snapshot{}),
	}
}

// Load fetches the three record sets concurrently. A failing fetch does not
// cancel the others. It returns ErrStaleLoad when a newer Load started while this
// one was in flight, and a *LoadError naming the first failed source otherwise.
func (l *SnapshotLoader) Load(ctx context.Context, q Query) (*Evaluator, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	token := l.generation.Add(1)
	start := time.Now()

	var (
		snap                         Snapshot
		availErr, slotsErr, dealsErr error
		g                            errgroup.Group
	)
	ref := q.Listing
	from, to := q.Start, q.End

	g.Go(func() error {
		snap.Availability, availErr = l.source.FetchAvailability(ctx, &ref, &from, &to)
		return availErr
	})
	g.Go(func() error {
		snap.PriceSlots, slotsErr = l.source.FetchPriceSlots(ctx, &ref, &from, &to)
		return slotsErr
	})
	g.Go(func() error {
		snap.Deals, dealsErr = l.source.FetchActiveDeals(ctx, &ref, &from, &to)
		return dealsErr
	})
	_ = g.Wait()

	var loadErr error
	switch {
	case availErr != nil:
		loadErr = &LoadError{Source: SourceAvailability, Listing: q.Listing, Err: availErr}
	case slotsErr != nil:
		loadErr = &LoadError{Source: SourcePriceSlots, Listing: q.Listing, Err: slotsErr}
	case dealsErr != nil:
		loadErr = &LoadError{Source: SourceDeals, Listing: q.Listing, Err: dealsErr}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if token != l.generation.Load() {
		l.log.Debug("discarding stale snapshot load",
			zap.String("listing", q.Listing.String()),
			zap.Uint64("generation", token),
		)
		return nil, ErrStaleLoad
	}

	if loadErr != nil {
		l.lastErr = loadErr
		l.log.Warn("snapshot load failed, keeping previous snapshot",
			zap.String("listing", q.Listing.String()),
			zap.String("range", q.Start.String()+".."+q.End.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(loadErr),
		)
		return nil, loadErr
	}

	l.current = NewEvaluator(q.Listing, snap)
	l.lastErr = nil
	return l.current, nil
}

// Current returns the last successfully applied evaluator
func (l *SnapshotLoader) Current() *Evaluator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Err returns the error of the latest applied load, nil after a success
func (l *SnapshotLoader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// Generation returns the token of the most recently started load
func (l *SnapshotLoader) Generation() uint64 {
	return l.generation.Load()
}
