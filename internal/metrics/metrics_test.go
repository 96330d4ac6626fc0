package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/ksred/vendor-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DSN keeps the in-memory database visible across
	// the pool's connections while isolating tests from each other
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&types.Vendor{},
		&types.PurchaseOrder{},
		&types.HistoricalPerformance{},
	))
	return db
}

func createTestVendor(t *testing.T, db *gorm.DB) *types.Vendor {
	t.Helper()

	vendor := &types.Vendor{
		VendorCode: "VND-TEST",
		Name:       "Test Vendor",
	}
	require.NoError(t, db.Create(vendor).Error)
	return vendor
}

func createTestOrder(t *testing.T, db *gorm.DB, vendor *types.Vendor, po types.PurchaseOrder) {
	t.Helper()

	po.VendorID = vendor.ID
	po.VendorCode = vendor.VendorCode
	if po.PONumber == "" {
		po.PONumber = "PO-" + time.Now().Format("150405.000000000")
	}
	require.NoError(t, db.Create(&po).Error)
}

func ratingPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func reloadVendor(t *testing.T, db *gorm.DB, id uint) *types.Vendor {
	t.Helper()

	var vendor types.Vendor
	require.NoError(t, db.First(&vendor, id).Error)
	return &vendor
}

func historyCount(t *testing.T, db *gorm.DB, vendorID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&types.HistoricalPerformance{}).Where("vendor_id = ?", vendorID).Count(&count).Error)
	return count
}

func TestRecomputeVendorWithNoOrders(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	vendor := &types.Vendor{
		VendorCode:           "VND-EMPTY",
		Name:                 "Empty Vendor",
		OnTimeDeliveryRate:   12.5,
		QualityRatingAverage: 7.0,
		AverageResponseTime:  3.25,
		FulfillmentRate:      12.5,
	}
	require.NoError(t, db.Create(vendor).Error)

	require.NoError(t, service.Recompute(vendor.ID))

	got := reloadVendor(t, db, vendor.ID)
	assert.Equal(t, 12.5, got.OnTimeDeliveryRate)
	assert.Equal(t, 7.0, got.QualityRatingAverage)
	assert.Equal(t, 3.25, got.AverageResponseTime)
	assert.Equal(t, 12.5, got.FulfillmentRate)
	assert.EqualValues(t, 0, historyCount(t, db, vendor.ID))
}

func TestRecomputeCompletionRates(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	vendor := createTestVendor(t, db)

	now := time.Now()
	for i, status := range []string{types.StatusCompleted, types.StatusCompleted, types.StatusPending, types.StatusRejected} {
		createTestOrder(t, db, vendor, types.PurchaseOrder{
			PONumber:  "PO-RATE-" + string(rune('A'+i)),
			OrderDate: now,
			IssueDate: now,
			Status:    status,
		})
	}

	require.NoError(t, service.Recompute(vendor.ID))

	got := reloadVendor(t, db, vendor.ID)
	assert.Equal(t, 50.0, got.OnTimeDeliveryRate)
	assert.Equal(t, 50.0, got.FulfillmentRate)
	assert.EqualValues(t, 1, historyCount(t, db, vendor.ID))
}

func TestRecomputeQualityRatingAverage(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	vendor := createTestVendor(t, db)

	now := time.Now()
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-Q1", OrderDate: now, IssueDate: now,
		Status: types.StatusCompleted, QualityRating: ratingPtr(8.0),
	})
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-Q2", OrderDate: now, IssueDate: now,
		Status: types.StatusCompleted, QualityRating: ratingPtr(4.0),
	})
	// Unrated orders are excluded from the mean, not counted as zero
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-Q3", OrderDate: now, IssueDate: now,
		Status: types.StatusPending,
	})

	require.NoError(t, service.Recompute(vendor.ID))

	got := reloadVendor(t, db, vendor.ID)
	assert.Equal(t, 6.0, got.QualityRatingAverage)
}

func TestRecomputeQualityRatingAverageAllNull(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	vendor := createTestVendor(t, db)
	vendor.QualityRatingAverage = 9.9
	require.NoError(t, db.Save(vendor).Error)

	now := time.Now()
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-N1", OrderDate: now, IssueDate: now, Status: types.StatusPending,
	})
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-N2", OrderDate: now, IssueDate: now, Status: types.StatusCompleted,
	})

	require.NoError(t, service.Recompute(vendor.ID))

	got := reloadVendor(t, db, vendor.ID)
	assert.Equal(t, 0.0, got.QualityRatingAverage)
}

func TestRecomputeAverageResponseTime(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	vendor := createTestVendor(t, db)

	base := time.Now().Add(-48 * time.Hour)
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-ART1", OrderDate: base, IssueDate: base,
		Status:             types.StatusCompleted,
		AcknowledgmentDate: timePtr(base.Add(2 * time.Hour)),
	})
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-ART2", OrderDate: base, IssueDate: base,
		Status:             types.StatusCompleted,
		AcknowledgmentDate: timePtr(base.Add(4 * time.Hour)),
	})
	// Unacknowledged orders do not contribute to the mean
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-ART3", OrderDate: base, IssueDate: base,
		Status: types.StatusPending,
	})

	require.NoError(t, service.Recompute(vendor.ID))

	got := reloadVendor(t, db, vendor.ID)
	assert.InDelta(t, 3.0, got.AverageResponseTime, 0.01)
}

func TestRecomputeRetainsResponseTimeWhenNoAcknowledgments(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	vendor := createTestVendor(t, db)
	vendor.AverageResponseTime = 5.75
	require.NoError(t, db.Save(vendor).Error)

	now := time.Now()
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-KEEP", OrderDate: now, IssueDate: now, Status: types.StatusCompleted,
	})

	require.NoError(t, service.Recompute(vendor.ID))

	// The faulty metric keeps its previous value while the others refresh
	// and the history snapshot is still written
	got := reloadVendor(t, db, vendor.ID)
	assert.Equal(t, 5.75, got.AverageResponseTime)
	assert.Equal(t, 100.0, got.OnTimeDeliveryRate)
	assert.EqualValues(t, 1, historyCount(t, db, vendor.ID))

	var history types.HistoricalPerformance
	require.NoError(t, db.Where("vendor_id = ?", vendor.ID).First(&history).Error)
	assert.Equal(t, 5.75, history.AverageResponseTime)
	assert.Equal(t, 100.0, history.OnTimeDeliveryRate)
}

func TestRecomputeTwiceAppendsTwoIdenticalSnapshots(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	vendor := createTestVendor(t, db)

	now := time.Now()
	createTestOrder(t, db, vendor, types.PurchaseOrder{
		PONumber: "PO-IDEM", OrderDate: now, IssueDate: now,
		Status: types.StatusCompleted, QualityRating: ratingPtr(7.5),
	})

	require.NoError(t, service.Recompute(vendor.ID))
	require.NoError(t, service.Recompute(vendor.ID))

	var history []types.HistoricalPerformance
	require.NoError(t, db.Where("vendor_id = ?", vendor.ID).Order("id").Find(&history).Error)
	require.Len(t, history, 2)
	assert.Equal(t, history[0].OnTimeDeliveryRate, history[1].OnTimeDeliveryRate)
	assert.Equal(t, history[0].QualityRatingAverage, history[1].QualityRatingAverage)
	assert.Equal(t, history[0].AverageResponseTime, history[1].AverageResponseTime)
	assert.Equal(t, history[0].FulfillmentRate, history[1].FulfillmentRate)
}

func TestRecomputeUnknownVendor(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	err := service.Recompute(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestVendorAverageResponseTime(t *testing.T) {
	issue := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	orders := []types.PurchaseOrder{
		{IssueDate: issue, AcknowledgmentDate: timePtr(issue.Add(90 * time.Minute))},
		{IssueDate: issue, AcknowledgmentDate: timePtr(issue.Add(30 * time.Minute))},
		{IssueDate: issue}, // unacknowledged, excluded
	}

	avg := VendorAverageResponseTime(orders)
	require.NotNil(t, avg)
	assert.Equal(t, 1.0, *avg)
}

func TestVendorAverageResponseTimeRounding(t *testing.T) {
	issue := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	orders := []types.PurchaseOrder{
		{IssueDate: issue, AcknowledgmentDate: timePtr(issue.Add(10 * time.Minute))},
	}

	avg := VendorAverageResponseTime(orders)
	require.NotNil(t, avg)
	// 10 minutes is 0.1666... hours, rounded to two decimals
	assert.Equal(t, 0.17, *avg)
}

func TestVendorAverageResponseTimeNoAcknowledgedOrders(t *testing.T) {
	orders := []types.PurchaseOrder{
		{IssueDate: time.Now()},
		{IssueDate: time.Now()},
	}

	assert.Nil(t, VendorAverageResponseTime(orders))
	assert.Nil(t, VendorAverageResponseTime(nil))
}

func TestCompletionRateEmpty(t *testing.T) {
	_, err := completionRate(nil)
	assert.ErrorIs(t, err, ErrNoOrders)
}
