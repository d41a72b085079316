// Package api is the REST surface over instruments, configurations and notifications.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/pkg/configuration"
	"github.com/shubham-shewale/fx-platform/pkg/models"
	"github.com/shubham-shewale/fx-platform/pkg/notify"
	"github.com/shubham-shewale/fx-platform/pkg/storage"
)

const (
	msgUnauthenticated     = "No autenticado"
	msgInvalidBody         = "Cuerpo JSON inválido o vacío"
	msgConfigsNotArray     = "configurations debe ser un array"
	msgNotificationIDReq   = "notification_id es requerido"
	msgConfigNotFound      = "Configuración no encontrada"
	msgNotificationMissing = "Notificación no encontrada"
	msgMarkedRead          = "Notificación marcada como leída"
	msgBatchProcessed      = "Configuraciones procesadas"
	msgInvalidInstrumentID = "instrument_id inválido"
)

type InstrumentLister interface {
	ListActive(ctx context.Context) ([]models.Instrument, error)
}

type Configurations interface {
	SaveEntry(ctx context.Context, userID int64, e configuration.Entry) (models.UserConfiguration, error)
	SaveBatch(ctx context.Context, userID int64, entries []configuration.Entry) configuration.BatchResult
	List(ctx context.Context, userID int64) ([]models.UserConfiguration, error)
	Remove(ctx context.Context, userID, instrumentID int64) error
}

type Notifications interface {
	List(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	BatchSaved(ctx context.Context, userID int64, errCount int, suffix string) (models.Notification, error)
	BatchFailed(ctx context.Context, userID int64) (models.Notification, error)
}

type Handler struct {
	instruments   InstrumentLister
	configs       Configurations
	notifications Notifications
	userHeader    string
	validate      *validator.Validate
	logger        *zap.Logger
}

func NewHandler(instruments InstrumentLister, configs Configurations, notifications Notifications, userHeader string, logger *zap.Logger) *Handler {
	return &Handler{
		instruments:   instruments,
		configs:       configs,
		notifications: notifications,
		userHeader:    userHeader,
		validate:      validator.New(),
		logger:        logger,
	}
}

func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(h.recoverer)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/instruments", h.listInstruments).Methods("GET")

	authed := api.NewRoute().Subrouter()
	authed.Use(h.authenticate)
	authed.HandleFunc("/configurations", h.listConfigurations).Methods("GET")
	authed.HandleFunc("/configurations", h.saveConfiguration).Methods("POST")
	authed.HandleFunc("/configurations/send", h.sendConfigurations).Methods("POST")
	authed.HandleFunc("/configurations/{instrumentId:[0-9]+}", h.removeConfiguration).Methods("DELETE")
	authed.HandleFunc("/notifications", h.listNotifications).Methods("GET")
	authed.HandleFunc("/notifications/read", h.markRead).Methods("POST")
	authed.HandleFunc("/notifications/unread-count", h.unreadCount).Methods("GET")

	return router
}

func (h *Handler) listInstruments(w http.ResponseWriter, r *http.Request) {
	list, err := h.instruments.ListActive(r.Context())
	if err != nil {
		h.internal(w, "Failed to list instruments", err)
		return
	}
	if list == nil {
		list = []models.Instrument{}
	}
	ok(w, list)
}

func (h *Handler) listConfigurations(w http.ResponseWriter, r *http.Request) {
	list, err := h.configs.List(r.Context(), userID(r))
	if err != nil {
		h.internal(w, "Failed to list configurations", err)
		return
	}
	views := make([]models.ConfigurationView, 0, len(list))
	for _, c := range list {
		views = append(views, c.View())
	}
	ok(w, views)
}

type saveRequest struct {
	InstrumentID  *int64   `json:"instrument_id" validate:"required"`
	TargetPrice   *float64 `json:"target_price"`
	OperationType *string  `json:"operation_type"`
}

func (h *Handler) saveConfiguration(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		fail(w, http.StatusBadRequest, configuration.MsgInstrumentRequired)
		return
	}

	saved, err := h.configs.SaveEntry(r.Context(), userID(r), configuration.Entry{
		InstrumentID:  req.InstrumentID,
		TargetPrice:   req.TargetPrice,
		OperationType: req.OperationType,
	})
	if err != nil {
		if ve, isValidation := configuration.IsValidation(err); isValidation {
			fail(w, http.StatusBadRequest, ve.Message)
			return
		}
		h.internal(w, "Failed to save configuration", err)
		return
	}
	ok(w, saved.View())
}

type sendRequest struct {
	Configurations []configuration.Entry `json:"configurations" validate:"required"`
}

func (h *Handler) sendConfigurations(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Panic while sending configurations", zap.Int64("user_id", uid), zap.Any("panic", rec), zap.Stack("stack"))
			if _, err := h.notifications.BatchFailed(context.WithoutCancel(r.Context()), uid); err != nil {
				h.logger.Error("Failed to store failure notification", zap.Error(err))
			}
			fail(w, http.StatusInternalServerError, configuration.MsgInternal)
		}
	}()

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || h.validate.Struct(req) != nil {
		fail(w, http.StatusBadRequest, msgConfigsNotArray)
		return
	}

	result := h.configs.SaveBatch(r.Context(), uid, req.Configurations)
	if _, err := h.notifications.BatchSaved(r.Context(), uid, len(result.Errors), ""); err != nil {
		h.logger.Error("Failed to store batch notification", zap.Int64("user_id", uid), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
		"message": msgBatchProcessed,
	})
}

func (h *Handler) removeConfiguration(w http.ResponseWriter, r *http.Request) {
	instrumentID, err := strconv.ParseInt(mux.Vars(r)["instrumentId"], 10, 64)
	if err != nil {
		fail(w, http.StatusBadRequest, msgInvalidInstrumentID)
		return
	}

	err = h.configs.Remove(r.Context(), userID(r), instrumentID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fail(w, http.StatusNotFound, msgConfigNotFound)
	case err != nil:
		h.internal(w, "Failed to remove configuration", err)
	default:
		ok(w, nil)
	}
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit := notify.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	list, err := h.notifications.List(r.Context(), userID(r), limit)
	if err != nil {
		h.internal(w, "Failed to list notifications", err)
		return
	}
	views := make([]models.NotificationView, 0, len(list))
	for _, n := range list {
		views = append(views, n.View())
	}
	ok(w, views)
}

type markReadRequest struct {
	NotificationID *int64 `json:"notification_id" validate:"required"`
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || h.validate.Struct(req) != nil {
		fail(w, http.StatusBadRequest, msgNotificationIDReq)
		return
	}

	err := h.notifications.MarkRead(r.Context(), userID(r), *req.NotificationID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fail(w, http.StatusNotFound, msgNotificationMissing)
	case err != nil:
		h.internal(w, "Failed to mark notification", err)
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": msgMarkedRead})
	}
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context(), userID(r))
	if err != nil {
		h.internal(w, "Failed to count notifications", err)
		return
	}
	ok(w, map[string]int64{"count": count})
}

func (h *Handler) internal(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	fail(w, http.StatusInternalServerError, configuration.MsgInternal)
}
