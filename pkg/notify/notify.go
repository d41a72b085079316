// Package notify is the notification sink shared by the streaming engine,
// the configuration channel and the REST API.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/pkg/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Store is the persistence the sink needs.
type Store interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	ListByUser(ctx context.Context, userID int64, limit uint64) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create persists an unread notification for the user.
func (s *Service) Create(ctx context.Context, userID int64, ntype models.NotificationType, title, message string) (models.Notification, error) {
	if !ntype.Valid() {
		return models.Notification{}, fmt.Errorf("invalid notification type %q", ntype)
	}

	n, err := s.store.Create(ctx, models.Notification{
		UserID:  userID,
		Type:    ntype,
		Title:   title,
		Message: message,
	})
	if err != nil {
		return models.Notification{}, err
	}

	s.logger.Info("Notification created", zap.Int64("user_id", userID), zap.String("type", string(ntype)))
	return n, nil
}

// List returns up to limit notifications, newest first. Non-positive limits
// fall back to DefaultLimit; larger ones are capped at MaxLimit.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.store.ListByUser(ctx, userID, uint64(limit))
}

func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.store.MarkRead(ctx, userID, id)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}

// Notifications stored after a configuration batch.
const (
	TitleBatchSent    = "Configuraciones enviadas"
	TitleBatchPartial = "Configuraciones parcialmente enviadas"
	TitleBatchFailed  = "Error al enviar configuraciones"

	BodyBatchSent   = "Todas las configuraciones se enviaron correctamente"
	BodyBatchFailed = "Ocurrió un error al procesar las configuraciones"

	// ViaWebSocket is appended to BodyBatchSent for batches from the configuration channel.
	ViaWebSocket = " vía WebSocket"
)

// BatchSaved stores the success notification of a batch, or a warning when
// errCount entries failed. suffix is appended to the success body.
func (s *Service) BatchSaved(ctx context.Context, userID int64, errCount int, suffix string) (models.Notification, error) {
	if errCount == 0 {
		return s.Create(ctx, userID, models.NotificationSuccess, TitleBatchSent, BodyBatchSent+suffix)
	}
	return s.Create(ctx, userID, models.NotificationWarning, TitleBatchPartial, fmt.Sprintf("%d configuraciones tuvieron errores", errCount))
}

// BatchFailed stores the error notification of a batch that could not be processed.
func (s *Service) BatchFailed(ctx context.Context, userID int64) (models.Notification, error) {
	return s.Create(ctx, userID, models.NotificationError, TitleBatchFailed, BodyBatchFailed)
}
