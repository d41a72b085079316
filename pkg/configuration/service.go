// Package configuration holds the one write path for user target
// configurations. The REST API and the configuration channel both go through
// Service so they share validation and the one-row-per-(user, instrument) rule.
package configuration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/pkg/models"
	"github.com/shubham-shewale/fx-platform/pkg/storage"
)

// User-facing messages. These reach the wire, internal errors never do.
const (
	MsgInstrumentRequired = "instrument_id es requerido"
	MsgInstrumentNotFound = "Instrumento no encontrado"
	MsgInvalidOperation   = "Tipo de operación inválido"
	MsgTargetNotPositive  = "El precio objetivo debe ser mayor a cero"
	MsgInternal           = "Error interno del servidor"
)

// ValidationError is a rejected input. Its message is safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// IsValidation reports whether err is (or wraps) a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type InstrumentFinder interface {
	FindByID(ctx context.Context, id int64) (models.Instrument, error)
}

type Store interface {
	Save(ctx context.Context, cfg models.UserConfiguration) (models.UserConfiguration, error)
	ListByUser(ctx context.Context, userID int64) ([]models.UserConfiguration, error)
	Deactivate(ctx context.Context, userID, instrumentID int64) error
}

// Entry is one item of a batch as it arrives on the wire.
type Entry struct {
	InstrumentID  *int64   `json:"instrument_id"`
	TargetPrice   *float64 `json:"target_price"`
	OperationType *string  `json:"operation_type"`

	// decodeErr is the validation message for a field that had the wrong JSON type.
	decodeErr string
}

// UnmarshalJSON never fails, so one mistyped item cannot reject the rest of
// its batch. Numeric strings are accepted for the numeric fields; any other
// mistyped field is reported by SaveEntry with the message of that field.
func (e *Entry) UnmarshalJSON(b []byte) error {
	*e = Entry{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		e.decodeErr = MsgInstrumentRequired
		return nil
	}

	if raw, ok := present(fields, "instrument_id"); ok {
		if id, err := number(raw).Int64(); err == nil {
			e.InstrumentID = &id
		} else {
			e.fail(MsgInstrumentRequired)
		}
	}
	if raw, ok := present(fields, "operation_type"); ok {
		var op string
		if err := json.Unmarshal(raw, &op); err == nil {
			e.OperationType = &op
		} else {
			e.fail(MsgInvalidOperation)
		}
	}
	if raw, ok := present(fields, "target_price"); ok {
		if target, err := number(raw).Float64(); err == nil {
			e.TargetPrice = &target
		} else {
			e.fail(MsgTargetNotPositive)
		}
	}
	return nil
}

// fail keeps the first decode error, in the order Save validates fields.
func (e *Entry) fail(msg string) {
	if e.decodeErr == "" {
		e.decodeErr = msg
	}
}

// present returns a field that is set and not null.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

// number decodes a JSON number or numeric string. Any other value yields the
// empty Number, which fails to convert.
func number(raw json.RawMessage) json.Number {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n
}

type ItemError struct {
	InstrumentID *int64 `json:"instrument_id"`
	Error        string `json:"error"`
}

// BatchResult is a partial-failure result: valid entries are saved even when others fail.
type BatchResult struct {
	Success []models.ConfigurationView `json:"success"`
	Errors  []ItemError                `json:"errors"`
}

type Service struct {
	instruments InstrumentFinder
	store       Store
	logger      *zap.Logger
}

func NewService(instruments InstrumentFinder, store Store, logger *zap.Logger) *Service {
	return &Service{instruments: instruments, store: store, logger: logger}
}

// Save validates and stores one configuration, updating the existing row for
// the (user, instrument) pair if there is one.
func (s *Service) Save(ctx context.Context, userID, instrumentID int64, target optional.Option[float64], op models.OperationType) (models.UserConfiguration, error) {
	if _, err := s.instruments.FindByID(ctx, instrumentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.UserConfiguration{}, invalid(MsgInstrumentNotFound)
		}
		return models.UserConfiguration{}, fmt.Errorf("lookup instrument %d: %w", instrumentID, err)
	}

	if !op.Valid() {
		return models.UserConfiguration{}, invalid(MsgInvalidOperation)
	}

	if target.IsSome() && target.Unwrap() <= 0 {
		return models.UserConfiguration{}, invalid(MsgTargetNotPositive)
	}

	saved, err := s.store.Save(ctx, models.UserConfiguration{
		UserID:        userID,
		InstrumentID:  instrumentID,
		TargetPrice:   target,
		OperationType: op,
		IsActive:      true,
	})
	if err != nil {
		return models.UserConfiguration{}, fmt.Errorf("save configuration: %w", err)
	}

	s.logger.Info("Configuration saved", zap.Int64("user_id", userID), zap.Int64("instrument_id", instrumentID))
	return saved, nil
}

// SaveEntry applies the wire defaults (operation_type "buy", absent target) before Save.
func (s *Service) SaveEntry(ctx context.Context, userID int64, e Entry) (models.UserConfiguration, error) {
	if e.decodeErr != "" {
		return models.UserConfiguration{}, invalid(e.decodeErr)
	}
	if e.InstrumentID == nil {
		return models.UserConfiguration{}, invalid(MsgInstrumentRequired)
	}

	op := models.OperationBuy
	if e.OperationType != nil {
		op = models.OperationType(*e.OperationType)
	}

	target := optional.None[float64]()
	if e.TargetPrice != nil {
		target = optional.Some(*e.TargetPrice)
	}

	return s.Save(ctx, userID, *e.InstrumentID, target, op)
}

// SaveBatch saves every entry independently and collects per-item errors.
func (s *Service) SaveBatch(ctx context.Context, userID int64, entries []Entry) BatchResult {
	result := BatchResult{
		Success: []models.ConfigurationView{},
		Errors:  []ItemError{},
	}

	for _, e := range entries {
		saved, err := s.SaveEntry(ctx, userID, e)
		if err == nil {
			result.Success = append(result.Success, saved.View())
			continue
		}

		msg := MsgInternal
		if ve, ok := IsValidation(err); ok {
			msg = ve.Message
		} else {
			s.logger.Error("Failed to save configuration",
				zap.Int64("user_id", userID),
				zap.Int64p("instrument_id", e.InstrumentID),
				zap.Error(err))
		}
		result.Errors = append(result.Errors, ItemError{InstrumentID: e.InstrumentID, Error: msg})
	}

	return result
}

func (s *Service) List(ctx context.Context, userID int64) ([]models.UserConfiguration, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, instrumentID int64) error {
	return s.store.Deactivate(ctx, userID, instrumentID)
}
