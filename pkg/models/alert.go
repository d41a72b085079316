package models

// AlertEvent is one configuration qualifying on one tick, before it is persisted.
type AlertEvent struct {
	UserID        int64         `json:"user_id"`
	InstrumentID  int64         `json:"instrument_id"`
	Symbol        string        `json:"instrument_symbol"`
	OperationType OperationType `json:"operation_type"`
	CurrentPrice  float64       `json:"current_price"`
	TargetPrice   float64       `json:"target_price"`
}
