package models

import "time"

type Instrument struct {
	ID            int64     `json:"id" yaml:"-"`
	Symbol        string    `json:"symbol" yaml:"symbol"`
	Name          string    `json:"name" yaml:"name"`
	BaseCurrency  string    `json:"base_currency" yaml:"base_currency"`
	QuoteCurrency string    `json:"quote_currency" yaml:"quote_currency"`
	IsActive      bool      `json:"is_active" yaml:"-"`
	CreatedAt     time.Time `json:"-" yaml:"-"`
}
