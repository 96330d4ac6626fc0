package types

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Purchase order status values
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// ValidStatus reports whether s is one of the recognised purchase order statuses
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusCompleted || s == StatusRejected
}

// Vendor represents a supplier with denormalized performance metrics.
// The four metric fields are caches refreshed only by the metrics engine;
// no other code path writes them.
type Vendor struct {
	gorm.Model           `json:"-"`
	VendorCode           string  `gorm:"uniqueIndex" json:"vendor_code"`
	Name                 string  `json:"name"`
	ContactDetails       string  `json:"contact_details"`
	Address              string  `json:"address"`
	OnTimeDeliveryRate   float64 `gorm:"default:0" json:"on_time_delivery_rate"`
	QualityRatingAverage float64 `gorm:"default:0" json:"quality_rating_average"`
	AverageResponseTime  float64 `gorm:"default:0" json:"average_response_time"`
	FulfillmentRate      float64 `gorm:"default:0" json:"fulfillment_rate"`

	PurchaseOrders []PurchaseOrder         `gorm:"foreignKey:VendorID;constraint:OnDelete:CASCADE" json:"-"`
	History        []HistoricalPerformance `gorm:"foreignKey:VendorID;constraint:OnDelete:CASCADE" json:"-"`
}

// PurchaseOrder represents a request to a vendor for goods.
// OrderDate and IssueDate are stamped at creation and never change.
// AcknowledgmentDate is set at most once, by the acknowledge operation.
type PurchaseOrder struct {
	gorm.Model         `json:"-"`
	PONumber           string         `gorm:"uniqueIndex" json:"po_number"`
	VendorID           uint           `gorm:"index" json:"-"`
	VendorCode         string         `json:"vendor_code"`
	OrderDate          time.Time      `json:"order_date"`
	DeliveryDate       time.Time      `json:"delivery_date"`
	Items              datatypes.JSON `json:"items"`
	Quantity           int            `json:"quantity"`
	Status             string         `gorm:"default:pending" json:"status"` // pending, completed, rejected
	QualityRating      *float64       `json:"quality_rating"`                // nullable, bounded [0, 10]
	IssueDate          time.Time      `json:"issue_date"`
	AcknowledgmentDate *time.Time     `json:"acknowledgment_date"`
}

// HistoricalPerformance is an append-only snapshot of a vendor's metrics
// taken each time a recompute run completes. Rows are never updated; they
// are removed only by cascade when the vendor is deleted.
type HistoricalPerformance struct {
	gorm.Model           `json:"-"`
	VendorID             uint      `gorm:"index" json:"-"`
	VendorCode           string    `json:"vendor_code"`
	RecordedAt           time.Time `json:"date"`
	OnTimeDeliveryRate   float64   `gorm:"default:0" json:"on_time_delivery_rate"`
	QualityRatingAverage float64   `gorm:"default:0" json:"quality_rating_average"`
	AverageResponseTime  float64   `gorm:"default:0" json:"average_response_time"`
	FulfillmentRate      float64   `gorm:"default:0" json:"fulfillment_rate"`
}
