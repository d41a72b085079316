// Package protocol defines the JSON messages of the price and configuration channels.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/shubham-shewale/fx-platform/pkg/configuration"
	"github.com/shubham-shewale/fx-platform/pkg/models"
)

const (
	TypeConnection    = "connection"
	TypePrices        = "prices"
	TypeTargetReached = "target_reached"
	TypeSuccess       = "success"
	TypeWarning       = "warning"
	TypeError         = "error"
	TypeNotification  = "notification"
)

const (
	WelcomePrices         = "Conectado al canal de precios"
	WelcomeConfigurations = "Conectado al canal de configuraciones"

	MsgInvalidJSON     = "Mensaje JSON inválido"
	MsgMissingFields   = "user_id y configurations son requeridos"
	MsgBatchOK         = "Configuraciones procesadas correctamente"
	MsgBatchPartial    = "Algunas configuraciones tuvieron errores"
	MsgConfigsUpdated  = "Configuraciones actualizadas"
	MsgTooManyMessages = "Demasiados mensajes, intente más tarde"
)

type ConnectionMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type PriceView struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Timestamp  string  `json:"timestamp"`
}

type PricesMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      []PriceView `json:"data"`
}

type TargetReachedMessage struct {
	Type         string                  `json:"type"`
	Notification models.NotificationView `json:"notification"`
	Timestamp    string                  `json:"timestamp"`
}

// ConfigRequest is an inbound configuration-channel message. Pointer and nil-slice
// fields distinguish "absent" from zero values.
type ConfigRequest struct {
	UserID         *int64                `json:"user_id"`
	Configurations []configuration.Entry `json:"configurations"`
	Timestamp      string                `json:"timestamp,omitempty"`
}

type ConfigResponse struct {
	Type      string                     `json:"type"`
	Timestamp string                     `json:"timestamp,omitempty"`
	Message   string                     `json:"message"`
	Data      *configuration.BatchResult `json:"data,omitempty"`
}

type NotificationMessage struct {
	Type    string `json:"type"`
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

func Welcome(message string) ConnectionMessage {
	return ConnectionMessage{Type: TypeConnection, Status: "connected", Message: message}
}

func Prices(snap models.PriceSnapshot, now time.Time) PricesMessage {
	data := make([]PriceView, 0, len(snap))
	for _, p := range snap {
		data = append(data, PriceView{
			Instrument: p.Symbol,
			Price:      p.Price,
			Timestamp:  p.ObservedAt.Format(models.MicroDateTimeLayout),
		})
	}
	return PricesMessage{Type: TypePrices, Timestamp: now.Format(models.DateTimeLayout), Data: data}
}

func TargetReached(n models.Notification, now time.Time) TargetReachedMessage {
	return TargetReachedMessage{Type: TypeTargetReached, Notification: n.View(), Timestamp: now.Format(models.DateTimeLayout)}
}

func Error(message string) ConfigResponse {
	return ConfigResponse{Type: TypeError, Message: message}
}

func ConfigsUpdated(userID int64) NotificationMessage {
	return NotificationMessage{Type: TypeNotification, UserID: userID, Message: MsgConfigsUpdated}
}

// Encode marshals a message for the wire.
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
