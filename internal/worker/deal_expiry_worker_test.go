package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/internal/repository"
	"github.com/prohmpiriya/wedding-market/internal/service"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
)

// batchExpirer hands out pending deal counts in batches
type batchExpirer struct {
	mu      sync.Mutex
	pending int
	days    []domain.Date
	err     error
}

func (e *batchExpirer) ExpireEndedDeals(_ context.Context, today domain.Date, batchSize int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.days = append(e.days, today)
	if e.err != nil {
		return 0, e.err
	}
	n := batchSize
	if e.pending < n {
		n = e.pending
	}
	e.pending -= n
	return n, nil
}

func (e *batchExpirer) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.days)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDealExpiryWorker_RunOnceDrainsBatches(t *testing.T) {
	expirer := &batchExpirer{pending: 5}
	w := NewDealExpiryWorker(expirer, &DealExpiryWorkerConfig{ScanInterval: time.Hour, BatchSize: 2}, logger.NewNop())
	w.now = fixedClock(time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC))

	n := w.RunOnce(context.Background())

	assert.Equal(t, 5, n)
	assert.Equal(t, 3, expirer.calls())
	assert.Equal(t, domain.NewDate(2026, 1, 2), expirer.days[0])

	stats := w.GetStats()
	assert.Equal(t, int64(5), stats.TotalExpired)
	assert.Equal(t, 5, stats.LastExpiredCount)
	assert.Equal(t, int64(1), stats.TotalScans)
	assert.Empty(t, stats.LastError)
}

func TestDealExpiryWorker_TodayFollowsLocation(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*60*60)
	expirer := &batchExpirer{}
	w := NewDealExpiryWorker(expirer, &DealExpiryWorkerConfig{ScanInterval: time.Hour, BatchSize: 10, Location: bangkok}, logger.NewNop())
	// 2025-12-31 20:00 UTC is already 2026-01-01 in Bangkok
	w.now = fixedClock(time.Date(2025, 12, 31, 20, 0, 0, 0, time.UTC))

	w.RunOnce(context.Background())

	require.Len(t, expirer.days, 1)
	assert.Equal(t, domain.NewDate(2026, 1, 1), expirer.days[0])
}

func TestDealExpiryWorker_RecordsFailure(t *testing.T) {
	expirer := &batchExpirer{err: errors.New("db down")}
	w := NewDealExpiryWorker(expirer, nil, logger.NewNop())

	n := w.RunOnce(context.Background())

	assert.Zero(t, n)
	assert.Equal(t, "db down", w.GetStats().LastError)
}

func TestDealExpiryWorker_StartStop(t *testing.T) {
	expirer := &batchExpirer{}
	w := NewDealExpiryWorker(expirer, &DealExpiryWorkerConfig{ScanInterval: 10 * time.Millisecond, BatchSize: 10}, logger.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	assert.True(t, w.GetStats().IsRunning)

	assert.Eventually(t, func() bool { return expirer.calls() >= 2 }, time.Second, 5*time.Millisecond)

	w.Stop()
	assert.False(t, w.GetStats().IsRunning)
	w.Stop()
}

func TestDealExpiryWorker_ExpiresThroughCalendarService(t *testing.T) {
	ctx := context.Background()
	calendar := repository.NewMemoryCalendarRepository()
	listings := repository.NewMemoryListingRepository()
	venue := domain.VenueRef("V1")

	for _, deal := range []*domain.TimeBoundDeal{
		{ID: "ended", Listing: venue, Title: "Summer", StartDate: domain.MustParseDate("2025-06-01"), EndDate: domain.MustParseDate("2025-06-30"), DiscountPercentage: 15, IsActive: true},
		{ID: "ends-today", Listing: venue, Title: "New year", StartDate: domain.MustParseDate("2025-12-28"), EndDate: domain.MustParseDate("2026-01-02"), DiscountPercentage: 5, IsActive: true},
	} {
		require.NoError(t, calendar.CreateDeal(ctx, deal))
	}

	svc := service.NewCalendarService(calendar, listings, nil, logger.NewNop())
	w := NewDealExpiryWorker(svc, &DealExpiryWorkerConfig{ScanInterval: time.Hour, BatchSize: 10}, logger.NewNop())
	w.now = fixedClock(time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, 1, w.RunOnce(ctx))

	ended, err := calendar.GetDeal(ctx, "ended")
	require.NoError(t, err)
	assert.False(t, ended.IsActive)

	current, err := calendar.GetDeal(ctx, "ends-today")
	require.NoError(t, err)
	assert.True(t, current.IsActive)
}
