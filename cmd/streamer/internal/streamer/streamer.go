// Package streamer runs the price channel: the periodic fetch, evaluate and
// broadcast tick, plus the welcome snapshot for new connections.
package streamer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/cmd/streamer/internal/alerts"
	"github.com/shubham-shewale/fx-platform/cmd/streamer/internal/evaluator"
	"github.com/shubham-shewale/fx-platform/pkg/hub"
	"github.com/shubham-shewale/fx-platform/pkg/models"
	"github.com/shubham-shewale/fx-platform/pkg/protocol"
)

const AlertTitle = "Precio Objetivo Alcanzado"

type PriceSource interface {
	Fetch(ctx context.Context) (models.PriceSnapshot, error)
}

type InstrumentIndex interface {
	SymbolIndex(ctx context.Context) (map[string]int64, error)
}

type ConfigSource interface {
	ActiveWithTarget(ctx context.Context) ([]models.UserConfiguration, error)
}

type NotificationSink interface {
	Create(ctx context.Context, userID int64, ntype models.NotificationType, title, message string) (models.Notification, error)
}

type AlertPublisher interface {
	Publish(ctx context.Context, a []alerts.Alert) error
}

type Deps struct {
	Source        PriceSource
	Instruments   InstrumentIndex
	Configs       ConfigSource
	Notifications NotificationSink
	// Publisher is optional.
	Publisher AlertPublisher
	Hub       *hub.Hub
}

type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	FetchTimeout time.Duration
}

// TickResult summarizes one tick for logs and tests.
type TickResult struct {
	Prices    int
	Alerts    int
	Delivered int
}

type Loop struct {
	Deps
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func NewLoop(deps Deps, opts Options, logger *zap.Logger) *Loop {
	return &Loop{Deps: deps, opts: opts, logger: logger, now: time.Now}
}

// SetClock replaces the wall clock used for message timestamps.
func (l *Loop) SetClock(now func() time.Time) { l.now = now }

// Run ticks once after InitialDelay and then every Interval until ctx is done.
// The two schedules are independent.
func (l *Loop) Run(ctx context.Context) {
	initial := time.NewTimer(l.opts.InitialDelay)
	defer initial.Stop()
	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	l.logger.Info("Price loop started",
		zap.Duration("initial_delay", l.opts.InitialDelay),
		zap.Duration("interval", l.opts.Interval))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Price loop stopped")
			return
		case <-initial.C:
			l.Tick(ctx)
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick fetches, evaluates and broadcasts once. Alerts go out before prices.
// Only a fetch failure aborts the tick; it is returned and the next tick retries.
func (l *Loop) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult

	snap, err := l.fetch(ctx)
	if err != nil {
		l.logger.Error("Failed to fetch prices, skipping tick", zap.Error(err))
		return res, err
	}
	res.Prices = len(snap)

	fired := l.fireAlerts(ctx, snap)
	res.Alerts = len(fired)

	msg, err := protocol.Encode(protocol.Prices(snap, l.now()))
	if err != nil {
		l.logger.Error("Failed to encode prices", zap.Error(err))
		return res, nil
	}
	res.Delivered = l.Hub.Broadcast(msg)

	if l.Publisher != nil && len(fired) > 0 {
		if err := l.Publisher.Publish(ctx, fired); err != nil {
			l.logger.Error("Failed to publish alerts", zap.Int("count", len(fired)), zap.Error(err))
		}
	}

	l.logger.Info("Tick completed",
		zap.Int("prices", res.Prices),
		zap.Int("alerts", res.Alerts),
		zap.Int("delivered", res.Delivered),
		zap.Int("connections", l.Hub.Len()))
	return res, nil
}

// fireAlerts persists and broadcasts every alert of the tick. Failures are
// per alert; an evaluation failure yields no alerts but leaves the tick alive.
func (l *Loop) fireAlerts(ctx context.Context, snap models.PriceSnapshot) []alerts.Alert {
	index, err := l.Instruments.SymbolIndex(ctx)
	if err != nil {
		l.logger.Error("Failed to load instruments", zap.Error(err))
		return nil
	}
	configs, err := l.Configs.ActiveWithTarget(ctx)
	if err != nil {
		l.logger.Error("Failed to load configurations", zap.Error(err))
		return nil
	}

	events := evaluator.Evaluate(snap, index, configs)
	fired := make([]alerts.Alert, 0, len(events))

	for _, ev := range events {
		n, err := l.Notifications.Create(ctx, ev.UserID, models.NotificationSuccess, AlertTitle, AlertMessage(ev))
		if err != nil {
			l.logger.Error("Failed to store alert notification",
				zap.Int64("user_id", ev.UserID),
				zap.Int64("instrument_id", ev.InstrumentID),
				zap.Error(err))
			continue
		}

		now := l.now()
		msg, err := protocol.Encode(protocol.TargetReached(n, now))
		if err != nil {
			l.logger.Error("Failed to encode alert", zap.Int64("notification_id", n.ID), zap.Error(err))
			continue
		}
		l.Hub.Broadcast(msg)

		l.logger.Info("Price target reached",
			zap.Int64("user_id", ev.UserID),
			zap.Int64("instrument_id", ev.InstrumentID),
			zap.Float64("target_price", ev.TargetPrice),
			zap.Float64("current_price", ev.CurrentPrice),
			zap.String("operation_type", string(ev.OperationType)))

		fired = append(fired, alerts.Alert{
			AlertEvent:     ev,
			NotificationID: n.ID,
			FiredAt:        now.Format(models.DateTimeLayout),
		})
	}
	return fired
}

func (l *Loop) fetch(ctx context.Context) (models.PriceSnapshot, error) {
	fctx, cancel := context.WithTimeout(ctx, l.opts.FetchTimeout)
	defer cancel()
	return l.Source.Fetch(fctx)
}

// OnConnect greets c, registers it and sends it a fresh snapshot of its own
// without waiting for the next tick.
func (l *Loop) OnConnect(c hub.Conn) {
	if msg, err := protocol.Encode(protocol.Welcome(protocol.WelcomePrices)); err == nil {
		if err := c.Send(msg); err != nil {
			l.logger.Warn("Failed to send welcome", zap.String("conn_id", c.ID()), zap.Error(err))
		}
	}

	l.Hub.Register(c)
	l.logger.Info("Client connected to price channel", zap.String("conn_id", c.ID()))

	go l.sendSnapshot(c)
}

func (l *Loop) OnDisconnect(c hub.Conn) {
	l.Hub.Unregister(c)
	l.logger.Info("Client disconnected from price channel", zap.String("conn_id", c.ID()))
}

func (l *Loop) sendSnapshot(c hub.Conn) {
	snap, err := l.fetch(context.Background())
	if err != nil {
		l.logger.Error("Failed to fetch initial prices", zap.String("conn_id", c.ID()), zap.Error(err))
		return
	}
	msg, err := protocol.Encode(protocol.Prices(snap, l.now()))
	if err != nil {
		return
	}
	if err := c.Send(msg); err != nil {
		l.logger.Warn("Failed to send initial prices", zap.String("conn_id", c.ID()), zap.Error(err))
	}
}

// AlertMessage is the notification body stored for a fired target.
func AlertMessage(ev models.AlertEvent) string {
	verb, label := "compra", "Compra"
	if ev.OperationType == models.OperationSell {
		verb, label = "venta", "Venta"
	}
	return fmt.Sprintf("El precio objetivo de %s para %s (%s) ha sido alcanzado. Precio actual: %.6f, Objetivo: %.6f",
		verb, ev.Symbol, label, ev.CurrentPrice, ev.TargetPrice)
}
