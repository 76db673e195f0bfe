package usecase

import "time"

// OrderPlacedMsg is written to the outbox inside the placement transaction
// and published on order.placed by the drainer.
type OrderPlacedMsg struct {
	EventID    string    `json:"eventId"`
	OrderID    int64     `json:"orderId"`
	UserID     int64     `json:"userId"`
	TotalPrice int64     `json:"totalPrice"`
	PlacedAt   time.Time `json:"placedAt"`
}

// OrderStatusChangedMsg is sent by the payment gateway on Kafka.
type OrderStatusChangedMsg struct {
	OrderID int64  `json:"orderId"`
	UserID  int64  `json:"userId"`
	Status  string `json:"status"` // "SUCCESS" or "FAILED"
}
