package worker

// OrderPaidMessage is the payload sent from API -> SQS -> Worker when a
// payment is confirmed.
type OrderPaidMessage struct {
	OrderID          string `json:"order_id"`
	PaymentReference string `json:"payment_reference,omitempty"`
	CorrelationID    string `json:"correlation_id,omitempty"`
}
