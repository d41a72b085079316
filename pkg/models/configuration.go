package models

import (
	"time"

	"github.com/moznion/go-optional"
)

type OperationType string

const (
	OperationBuy  OperationType = "buy"
	OperationSell OperationType = "sell"
)

func (o OperationType) Valid() bool {
	return o == OperationBuy || o == OperationSell
}

// UserConfiguration is a user's standing price target for one instrument.
// (UserID, InstrumentID) identifies it; there is never more than one row per pair.
type UserConfiguration struct {
	ID            int64
	UserID        int64
	InstrumentID  int64
	TargetPrice   optional.Option[float64]
	OperationType OperationType
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     optional.Option[time.Time]
}

// ConfigurationView is the wire shape of a saved configuration.
type ConfigurationView struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"user_id"`
	InstrumentID  int64         `json:"instrument_id"`
	TargetPrice   *float64      `json:"target_price"`
	OperationType OperationType `json:"operation_type"`
	IsActive      bool          `json:"is_active"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     *string       `json:"updated_at"`
}

func (c UserConfiguration) View() ConfigurationView {
	v := ConfigurationView{
		ID:            c.ID,
		UserID:        c.UserID,
		InstrumentID:  c.InstrumentID,
		OperationType: c.OperationType,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt.Format(DateTimeLayout),
	}
	if c.TargetPrice.IsSome() {
		tp := c.TargetPrice.Unwrap()
		v.TargetPrice = &tp
	}
	if c.UpdatedAt.IsSome() {
		ts := c.UpdatedAt.Unwrap().Format(DateTimeLayout)
		v.UpdatedAt = &ts
	}
	return v
}

// DateTimeLayout is the second-precision timestamp format used on every wire message.
const DateTimeLayout = "2006-01-02 15:04:05"

// MicroDateTimeLayout is used for per-quote timestamps.
const MicroDateTimeLayout = "2006-01-02 15:04:05.000000"
