package metrics

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/ksred/vendor-api/internal/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrNoOrders             = errors.New("vendor has no purchase orders")
	ErrNoAcknowledgedOrders = errors.New("vendor has no acknowledged purchase orders")
)

// Service recalculates vendor performance metrics from purchase order
// history. The four metric fields on Vendor are caches owned by this
// service; nothing else writes them.
type Service struct {
	db *Database

	mu          sync.Mutex
	vendorLocks map[uint]*sync.Mutex
}

// NewService creates a new metrics service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:          NewDatabase(gormDB),
		vendorLocks: make(map[uint]*sync.Mutex),
	}
}

// Recompute refreshes a vendor's four performance metrics from its purchase
// orders and appends a history snapshot. The whole run executes inside a
// single transaction, and runs for the same vendor are serialized; distinct
// vendors can recompute concurrently.
//
// A vendor with zero orders is left untouched: no metric changes and no
// history row is written. Each metric is computed independently, so a fault
// in one leaves the other three intact — the faulty metric keeps its
// previous value and the run still completes.
func (s *Service) Recompute(vendorID uint) error {
	unlock := s.lockVendor(vendorID)
	defer unlock()

	logger := log.With().
		Uint("vendor_id", vendorID).
		Str("service", "metrics").
		Logger()

	return s.db.withTransaction(func(tx *Database) error {
		vendor, err := tx.GetVendorByID(vendorID)
		if err != nil {
			logger.Error().Err(err).Msg("failed to fetch vendor for recompute")
			return err
		}

		orders, err := tx.GetOrdersForVendor(vendorID)
		if err != nil {
			logger.Error().Err(err).Msg("failed to fetch purchase orders for recompute")
			return err
		}

		if len(orders) == 0 {
			logger.Debug().Msg("vendor has no purchase orders, metrics unchanged")
			return nil
		}

		applyMetrics(logger, vendor, orders)

		// Snapshot first, then the vendor row, matching the order the
		// metrics were committed historically
		history := &types.HistoricalPerformance{
			VendorID:             vendor.ID,
			VendorCode:           vendor.VendorCode,
			RecordedAt:           time.Now(),
			OnTimeDeliveryRate:   vendor.OnTimeDeliveryRate,
			QualityRatingAverage: vendor.QualityRatingAverage,
			AverageResponseTime:  vendor.AverageResponseTime,
			FulfillmentRate:      vendor.FulfillmentRate,
		}
		if err := tx.CreateHistory(history); err != nil {
			logger.Error().Err(err).Msg("failed to write history snapshot")
			return err
		}

		if err := tx.SaveVendor(vendor); err != nil {
			logger.Error().Err(err).Msg("failed to save vendor metrics")
			return err
		}

		logger.Info().
			Str("vendor_code", vendor.VendorCode).
			Int("order_count", len(orders)).
			Float64("on_time_delivery_rate", vendor.OnTimeDeliveryRate).
			Float64("quality_rating_average", vendor.QualityRatingAverage).
			Float64("average_response_time", vendor.AverageResponseTime).
			Float64("fulfillment_rate", vendor.FulfillmentRate).
			Msg("vendor metrics recomputed")

		return nil
	})
}

// lockVendor serializes recomputes per vendor. Returns the unlock func.
func (s *Service) lockVendor(vendorID uint) func() {
	s.mu.Lock()
	l, ok := s.vendorLocks[vendorID]
	if !ok {
		l = &sync.Mutex{}
		s.vendorLocks[vendorID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// applyMetrics computes each metric in isolation. A failed computation is
// logged and that metric retains its previous value; the others still apply.
func applyMetrics(logger zerolog.Logger, vendor *types.Vendor, orders []types.PurchaseOrder) {
	if v, err := completionRate(orders); err != nil {
		logger.Error().Err(err).Msg("on-time delivery rate computation failed, keeping previous value")
	} else {
		vendor.OnTimeDeliveryRate = v
	}

	if v, err := qualityRatingAverage(orders); err != nil {
		logger.Error().Err(err).Msg("quality rating average computation failed, keeping previous value")
	} else {
		vendor.QualityRatingAverage = v
	}

	if v, err := averageResponseTime(orders); err != nil {
		logger.Error().Err(err).Msg("average response time computation failed, keeping previous value")
	} else {
		vendor.AverageResponseTime = v
	}

	// Fulfillment rate intentionally shares the completed-count formula
	// with on-time delivery rate
	if v, err := completionRate(orders); err != nil {
		logger.Error().Err(err).Msg("fulfillment rate computation failed, keeping previous value")
	} else {
		vendor.FulfillmentRate = v
	}
}

// completionRate is the percentage of orders with status completed
func completionRate(orders []types.PurchaseOrder) (float64, error) {
	if len(orders) == 0 {
		return 0, ErrNoOrders
	}
	completed := 0
	for _, po := range orders {
		if po.Status == types.StatusCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(orders)) * 100, nil
}

// qualityRatingAverage is the mean of the ratings that are present; orders
// without a rating are ignored. Zero when no order carries a rating.
func qualityRatingAverage(orders []types.PurchaseOrder) (float64, error) {
	var sum float64
	var count int
	for _, po := range orders {
		if po.QualityRating == nil {
			continue
		}
		sum += *po.QualityRating
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

// averageResponseTime is the mean, in hours, between order date and
// acknowledgment over acknowledged orders. Errors when no order has been
// acknowledged yet, so the vendor's previous value is retained.
func averageResponseTime(orders []types.PurchaseOrder) (float64, error) {
	var total time.Duration
	var count int
	for _, po := range orders {
		if po.AcknowledgmentDate == nil {
			continue
		}
		total += po.AcknowledgmentDate.Sub(po.OrderDate)
		count++
	}
	if count == 0 {
		return 0, ErrNoAcknowledgedOrders
	}
	return total.Hours() / float64(count), nil
}

// VendorAverageResponseTime is the vendor-wide formula used by the
// acknowledge operation: mean of (acknowledgment date - issue date) in
// seconds over the vendor's acknowledged orders, converted to hours and
// rounded to two decimals. Returns nil when no order has been acknowledged,
// which callers must treat as "no data" rather than zero.
func VendorAverageResponseTime(orders []types.PurchaseOrder) *float64 {
	var totalSeconds float64
	var count int
	for _, po := range orders {
		if po.AcknowledgmentDate == nil {
			continue
		}
		totalSeconds += po.AcknowledgmentDate.Sub(po.IssueDate).Seconds()
		count++
	}
	if count == 0 {
		return nil
	}
	hours := math.Round(totalSeconds/float64(count)/3600*100) / 100
	return &hours
}
