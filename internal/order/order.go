package order

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/vendor-api/internal/metrics"
	"github.com/ksred/vendor-api/internal/types"
	"github.com/ksred/vendor-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound        = errors.New("purchase order not found")
	ErrVendorNotFound       = errors.New("vendor not found")
	ErrAlreadyAcknowledged  = errors.New("purchase order already acknowledged")
	ErrInvalidStatus        = errors.New("status must be one of pending, completed, rejected")
	ErrInvalidQualityRating = errors.New("quality rating must be between 0.0 and 10.0")
)

// Service handles the purchase order lifecycle. Every create or update
// triggers a vendor metrics recompute; the acknowledge operation stamps the
// acknowledgment date and refreshes the vendor-wide average response time.
type Service struct {
	db      *Database
	metrics *metrics.Service
}

// NewService creates a new order service with the given database connection
// and metrics engine
func NewService(gormDB *gorm.DB, metricsService *metrics.Service) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		metrics: metricsService,
	}
}

// CreateOrderRequest is the payload for creating a purchase order.
// PONumber is optional; one is generated when absent. Items is an opaque
// payload stored and returned verbatim.
type CreateOrderRequest struct {
	PONumber      string                 `json:"po_number"`
	VendorCode    string                 `json:"vendor_code" binding:"required"`
	DeliveryDate  time.Time              `json:"delivery_date" binding:"required"`
	Items         map[string]interface{} `json:"items" binding:"required"`
	Quantity      int                    `json:"quantity" binding:"required"`
	Status        string                 `json:"status"`
	QualityRating *float64               `json:"quality_rating"`
}

// UpdateOrderRequest carries the mutable purchase order fields. Order date,
// issue date and acknowledgment date are not updatable through this path.
type UpdateOrderRequest struct {
	DeliveryDate  *time.Time             `json:"delivery_date"`
	Items         map[string]interface{} `json:"items"`
	Quantity      *int                   `json:"quantity"`
	Status        *string                `json:"status"`
	QualityRating *float64               `json:"quality_rating"`
}

// CreateOrder validates and persists a new purchase order, stamping the
// order and issue dates, then triggers a metrics recompute for the vendor
func (s *Service) CreateOrder(req *CreateOrderRequest) (*types.PurchaseOrder, error) {
	status := req.Status
	if status == "" {
		status = types.StatusPending
	}
	if !types.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	if err := validateQualityRating(req.QualityRating); err != nil {
		return nil, err
	}

	vendor, err := s.db.GetVendorByCode(req.VendorCode)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, ErrVendorNotFound
	}

	poNumber := req.PONumber
	if poNumber == "" {
		poNumber = "PO-" + uuid.New().String()
	}

	items, err := json.Marshal(req.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	po := &types.PurchaseOrder{
		PONumber:      poNumber,
		VendorID:      vendor.ID,
		VendorCode:    vendor.VendorCode,
		OrderDate:     now,
		DeliveryDate:  req.DeliveryDate,
		Items:         datatypes.JSON(items),
		Quantity:      req.Quantity,
		Status:        status,
		QualityRating: req.QualityRating,
		IssueDate:     now,
	}

	if err := s.db.CreateOrder(po); err != nil {
		return nil, err
	}

	s.triggerRecompute(vendor.ID, po.PONumber)

	return po, nil
}

// UpdateOrder applies the mutable fields to an existing purchase order and
// triggers a metrics recompute for its vendor
func (s *Service) UpdateOrder(poNumber string, req *UpdateOrderRequest) (*types.PurchaseOrder, error) {
	po, err := s.db.GetOrderByPONumber(poNumber)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, ErrOrderNotFound
	}

	if req.Status != nil {
		if !types.ValidStatus(*req.Status) {
			return nil, ErrInvalidStatus
		}
		po.Status = *req.Status
	}
	if req.QualityRating != nil {
		if err := validateQualityRating(req.QualityRating); err != nil {
			return nil, err
		}
		po.QualityRating = req.QualityRating
	}
	if req.DeliveryDate != nil {
		po.DeliveryDate = *req.DeliveryDate
	}
	if req.Items != nil {
		items, err := json.Marshal(req.Items)
		if err != nil {
			return nil, err
		}
		po.Items = datatypes.JSON(items)
	}
	if req.Quantity != nil {
		po.Quantity = *req.Quantity
	}

	if err := s.db.SaveOrder(po); err != nil {
		return nil, err
	}

	s.triggerRecompute(po.VendorID, po.PONumber)

	return po, nil
}

// GetOrder retrieves a purchase order by its PO number
func (s *Service) GetOrder(poNumber string) (*types.PurchaseOrder, error) {
	return s.db.GetOrderByPONumber(poNumber)
}

// ListOrders retrieves purchase orders, optionally filtered by vendor code
func (s *Service) ListOrders(vendorCode string) ([]types.PurchaseOrder, error) {
	return s.db.ListOrders(vendorCode)
}

// DeleteOrder removes a purchase order by its PO number
func (s *Service) DeleteOrder(poNumber string) error {
	po, err := s.db.GetOrderByPONumber(poNumber)
	if err != nil {
		return err
	}
	if po == nil {
		return ErrOrderNotFound
	}
	return s.db.DeleteOrder(po)
}

// Acknowledge stamps the acknowledgment date on a purchase order and
// refreshes the owning vendor's average response time using the vendor-wide
// formula over its acknowledged orders. The order update and vendor update
// commit in a single transaction. A second acknowledge of the same order is
// rejected, keeping the timestamp immutable once set.
func (s *Service) Acknowledge(poNumber string) (*types.AcknowledgeResponse, error) {
	logger := log.With().
		Str("po_number", poNumber).
		Str("service", "order").
		Logger()

	err := s.db.withTransaction(func(tx *Database) error {
		po, err := tx.GetOrderByPONumber(poNumber)
		if err != nil {
			return err
		}
		if po == nil {
			return ErrOrderNotFound
		}
		if po.AcknowledgmentDate != nil {
			return ErrAlreadyAcknowledged
		}

		now := time.Now()
		po.AcknowledgmentDate = &now
		if err := tx.SaveOrder(po); err != nil {
			return err
		}

		orders, err := tx.GetOrdersForVendor(po.VendorID)
		if err != nil {
			return err
		}

		avg := metrics.VendorAverageResponseTime(orders)
		if avg == nil {
			// No acknowledged orders for this vendor, nothing to refresh
			logger.Debug().Msg("no acknowledged orders, vendor response time unchanged")
			return nil
		}

		vendor, err := tx.GetVendorByID(po.VendorID)
		if err != nil {
			return err
		}
		vendor.AverageResponseTime = *avg
		if err := tx.SaveVendor(vendor); err != nil {
			return err
		}

		logger.Info().
			Str("vendor_code", vendor.VendorCode).
			Float64("average_response_time", *avg).
			Msg("purchase order acknowledged")

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &types.AcknowledgeResponse{
		Message: "Purchase order acknowledged successfully.",
	}, nil
}

// triggerRecompute refreshes the vendor's metrics after a purchase order
// save. The recompute fires on every save regardless of status; a failure
// is logged but does not roll back the already-persisted order.
func (s *Service) triggerRecompute(vendorID uint, poNumber string) {
	if err := s.metrics.Recompute(vendorID); err != nil {
		log.Error().
			Err(err).
			Uint("vendor_id", vendorID).
			Str("po_number", poNumber).
			Msg("metrics recompute failed after purchase order save")
	}
}

func validateQualityRating(rating *float64) error {
	if rating != nil && (*rating < 0.0 || *rating > 10.0) {
		return ErrInvalidQualityRating
	}
	return nil
}

// GinHandlers contains HTTP handlers for purchase order endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for purchase order endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreateOrderHandler handles POST requests to create purchase orders
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		po, err := h.service.CreateOrder(&req)
		if err != nil {
			handleOrderError(c, err)
			return
		}

		response.Success(c, po)
	}
}

// GetOrderHandler handles GET requests for a single purchase order
// URL parameter: po_number
func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		po, err := h.service.GetOrder(c.Param("po_number"))
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		if po == nil {
			response.NotFound(c, "Purchase order not found")
			return
		}

		response.Success(c, po)
	}
}

// ListOrdersHandler handles GET requests for purchase orders
// Optional query parameter: vendor_code
func (h *GinHandlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := h.service.ListOrders(c.Query("vendor_code"))
		response.Handle(c, orders, err)
	}
}

// UpdateOrderHandler handles PUT requests to update purchase orders
// URL parameter: po_number
func (h *GinHandlers) UpdateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		po, err := h.service.UpdateOrder(c.Param("po_number"), &req)
		if err != nil {
			handleOrderError(c, err)
			return
		}

		response.Success(c, po)
	}
}

// DeleteOrderHandler handles DELETE requests for purchase orders
// URL parameter: po_number
func (h *GinHandlers) DeleteOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.DeleteOrder(c.Param("po_number")); err != nil {
			handleOrderError(c, err)
			return
		}

		response.Success(c, gin.H{"message": "Purchase order deleted successfully."})
	}
}

// AcknowledgeHandler handles GET requests to acknowledge a purchase order
// URL parameter: po_number
func (h *GinHandlers) AcknowledgeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ack, err := h.service.Acknowledge(c.Param("po_number"))
		if err != nil {
			handleOrderError(c, err)
			return
		}

		response.Success(c, ack)
	}
}

// handleOrderError maps order service errors onto API responses
func handleOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrVendorNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrAlreadyAcknowledged):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidQualityRating):
		response.BadRequest(c, err.Error())
	default:
		response.Handle(c, nil, err)
	}
}
