package types

// PerformanceResponse carries a vendor's four cached metric values.
// Reads return whatever was computed by the last recompute run; they never
// trigger a fresh calculation.
type PerformanceResponse struct {
	OnTimeDeliveryRate   float64 `json:"on_time_delivery_rate"`
	QualityRatingAverage float64 `json:"quality_rating_average"`
	AverageResponseTime  float64 `json:"average_response_time"`
	FulfillmentRate      float64 `json:"fulfillment_rate"`
}

// AcknowledgeResponse is returned by the purchase order acknowledge endpoint
type AcknowledgeResponse struct {
	Message string `json:"message"`
}
