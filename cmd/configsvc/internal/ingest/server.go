// Package ingest is the configuration channel: clients send batches of target
// configurations and get a correlated success, warning or error reply.
package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shubham-shewale/fx-platform/pkg/configuration"
	"github.com/shubham-shewale/fx-platform/pkg/hub"
	"github.com/shubham-shewale/fx-platform/pkg/models"
	"github.com/shubham-shewale/fx-platform/pkg/notify"
	"github.com/shubham-shewale/fx-platform/pkg/protocol"
	"github.com/shubham-shewale/fx-platform/pkg/wsconn"
)

type BatchSaver interface {
	SaveBatch(ctx context.Context, userID int64, entries []configuration.Entry) configuration.BatchResult
}

type Notifier interface {
	BatchSaved(ctx context.Context, userID int64, errCount int, suffix string) (models.Notification, error)
}

type Options struct {
	MessagesPerSecond float64
	Burst             int
	// HandleTimeout bounds the storage work of one message.
	HandleTimeout time.Duration
}

type Server struct {
	saver    BatchSaver
	notifier Notifier
	hub      *hub.Hub
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

func NewServer(saver BatchSaver, notifier Notifier, h *hub.Hub, opts Options, logger *zap.Logger) *Server {
	if opts.HandleTimeout <= 0 {
		opts.HandleTimeout = 10 * time.Second
	}
	return &Server{saver: saver, notifier: notifier, hub: h, opts: opts, logger: logger, now: time.Now}
}

func (s *Server) SetClock(now func() time.Time) { s.now = now }

// OnConnect greets c and adds it to the set that hears about other clients' changes.
func (s *Server) OnConnect(c hub.Conn) {
	s.reply(c, protocol.Welcome(protocol.WelcomeConfigurations))
	s.hub.Register(c)
	s.logger.Info("Client connected to configuration channel", zap.String("conn_id", c.ID()))
}

func (s *Server) OnDisconnect(c hub.Conn) {
	s.hub.Unregister(c)
	s.logger.Info("Client disconnected from configuration channel", zap.String("conn_id", c.ID()))
}

// HandleMessage processes one inbound message from c. Every outcome is
// answered on c; nothing here can affect other connections except the
// best-effort change notice.
func (s *Server) HandleMessage(ctx context.Context, c hub.Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while processing configurations",
				zap.String("conn_id", c.ID()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			s.reply(c, protocol.Error(configuration.MsgInternal))
		}
	}()

	s.logger.Debug("Message received on configuration channel", zap.String("conn_id", c.ID()), zap.Int("size", len(raw)))

	var req protocol.ConfigRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.Warn("Invalid configuration message", zap.String("conn_id", c.ID()), zap.Error(err))
		s.reply(c, protocol.Error(protocol.MsgInvalidJSON))
		return
	}
	if req.UserID == nil || req.Configurations == nil {
		s.logger.Warn("Configuration message missing fields", zap.String("conn_id", c.ID()))
		s.reply(c, protocol.Error(protocol.MsgMissingFields))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.HandleTimeout)
	defer cancel()

	userID := *req.UserID
	result := s.saver.SaveBatch(ctx, userID, req.Configurations)

	// The reply does not depend on the notification being stored
	if _, err := s.notifier.BatchSaved(ctx, userID, len(result.Errors), notify.ViaWebSocket); err != nil {
		s.logger.Error("Failed to store batch notification", zap.Int64("user_id", userID), zap.Error(err))
	}

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = s.now().Format(models.DateTimeLayout)
	}

	resp := protocol.ConfigResponse{
		Type:      protocol.TypeSuccess,
		Timestamp: timestamp,
		Message:   protocol.MsgBatchOK,
		Data:      &result,
	}
	if len(result.Errors) > 0 {
		resp.Type = protocol.TypeWarning
		resp.Message = protocol.MsgBatchPartial
	}
	msg, err := protocol.Encode(resp)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Int64("user_id", userID), zap.Error(err))
		s.reply(c, protocol.Error(configuration.MsgInternal))
		return
	}
	if err := c.Send(msg); err != nil {
		s.logger.Warn("Failed to reply", zap.String("conn_id", c.ID()), zap.Error(err))
	}

	if notice, err := protocol.Encode(protocol.ConfigsUpdated(userID)); err == nil {
		s.hub.BroadcastExcept(c, notice)
	}

	s.logger.Info("Configurations processed",
		zap.Int64("user_id", userID),
		zap.Int("success_count", len(result.Success)),
		zap.Int("error_count", len(result.Errors)))
}

// ServeWS upgrades configuration-channel connections. Each connection gets
// its own inbound message budget.
func (s *Server) ServeWS(ctx context.Context, opts wsconn.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limiter := rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.Burst)

		c, err := wsconn.Accept(w, r, s.logger, opts, wsconn.Handlers{
			OnMessage: func(c *wsconn.Conn, msg []byte) {
				if !limiter.Allow() {
					s.logger.Warn("Configuration message rate exceeded", zap.String("conn_id", c.ID()))
					s.reply(c, protocol.Error(protocol.MsgTooManyMessages))
					return
				}
				s.HandleMessage(ctx, c, msg)
			},
			OnClose: func(c *wsconn.Conn) { s.OnDisconnect(c) },
		})
		if err != nil {
			s.logger.Warn("Upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}

		s.logger.Debug("Connection accepted", zap.String("conn_id", c.ID()), zap.String("remote", c.RemoteAddr()))
		s.OnConnect(c)
		c.Start()
	}
}

func (s *Server) reply(c hub.Conn, v interface{}) {
	if err := s.send(c, v); err != nil {
		s.logger.Warn("Failed to reply", zap.String("conn_id", c.ID()), zap.Error(err))
	}
}

func (s *Server) send(c hub.Conn, v interface{}) error {
	msg, err := protocol.Encode(v)
	if err != nil {
		return err
	}
	return c.Send(msg)
}
