package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
)

// DealExpirer deactivates deals that ended before today
type DealExpirer interface {
	ExpireEndedDeals(ctx context.Context, today domain.Date, batchSize int) (int, error)
}

// DealExpiryWorkerConfig contains configuration for the deal expiry worker
type DealExpiryWorkerConfig struct {
	// ScanInterval is the interval between scans for ended deals
	ScanInterval time.Duration
	// BatchSize caps the deals deactivated per round trip
	BatchSize int
	// Location decides which calendar day "today" is
	Location *time.Location
}

// DefaultDealExpiryWorkerConfig returns default configuration
func DefaultDealExpiryWorkerConfig() *DealExpiryWorkerConfig {
	return &DealExpiryWorkerConfig{
		ScanInterval: time.Minute,
		BatchSize:    200,
		Location:     time.UTC,
	}
}

// DealExpiryWorker switches off deals whose end date has passed
type DealExpiryWorker struct {
	expirer DealExpirer
	config  *DealExpiryWorkerConfig
	log     *logger.Logger
	now     func() time.Time
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// Stats
	totalExpired     int64
	totalScans       int64
	lastScanTime     time.Time
	lastExpiredCount int
	lastError        string
}

// NewDealExpiryWorker creates a new deal expiry worker
func NewDealExpiryWorker(expirer DealExpirer, config *DealExpiryWorkerConfig, log *logger.Logger) *DealExpiryWorker {
	if config == nil {
		config = DefaultDealExpiryWorkerConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultDealExpiryWorkerConfig().BatchSize
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if log == nil {
		log = logger.Get()
	}

	return &DealExpiryWorker{
		expirer: expirer,
		config:  config,
		log:     log,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start starts the deal expiry worker
func (w *DealExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("deal expiry worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting deal expiry worker",
		zap.Duration("scan_interval", w.config.ScanInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.wg.Add(1)
	go w.scanEndedDeals(ctx)

	return nil
}

// Stop stops the deal expiry worker
func (w *DealExpiryWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping deal expiry worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Deal expiry worker stopped")
}

func (w *DealExpiryWorker) scanEndedDeals(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce expires ended deals until a batch comes back short
func (w *DealExpiryWorker) RunOnce(ctx context.Context) int {
	today := domain.DateOf(w.now().In(w.config.Location))

	expired := 0
	var scanErr error
	for ctx.Err() == nil {
		n, err := w.expirer.ExpireEndedDeals(ctx, today, w.config.BatchSize)
		if err != nil {
			scanErr = err
			w.log.Error("Failed to expire ended deals",
				zap.String("today", today.String()),
				zap.Error(err),
			)
			break
		}
		expired += n
		if n < w.config.BatchSize {
			break
		}
	}

	if expired > 0 {
		w.log.Info("Expired ended deals", zap.Int("count", expired), zap.String("today", today.String()))
	}

	w.mu.Lock()
	w.totalScans++
	w.totalExpired += int64(expired)
	w.lastScanTime = w.now()
	w.lastExpiredCount = expired
	w.lastError = ""
	if scanErr != nil {
		w.lastError = scanErr.Error()
	}
	w.mu.Unlock()

	return expired
}

// GetStats returns worker statistics
func (w *DealExpiryWorker) GetStats() *DealExpiryWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &DealExpiryWorkerStats{
		IsRunning:        w.running,
		TotalExpired:     w.totalExpired,
		TotalScans:       w.totalScans,
		LastScanTime:     w.lastScanTime,
		LastExpiredCount: w.lastExpiredCount,
		LastError:        w.lastError,
	}
}

// DealExpiryWorkerStats contains worker statistics
type DealExpiryWorkerStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalExpired     int64     `json:"total_expired"`
	TotalScans       int64     `json:"total_scans"`
	LastScanTime     time.Time `json:"last_scan_time"`
	LastExpiredCount int       `json:"last_expired_count"`
	LastError        string    `json:"last_error,omitempty"`
}
