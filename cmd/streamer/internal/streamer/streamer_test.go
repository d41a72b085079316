package streamer_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/cmd/streamer/internal/streamer"
	"github.com/shubham-shewale/fx-platform/cmd/streamer/internal/testutils"
	"github.com/shubham-shewale/fx-platform/pkg/hub"
	"github.com/shubham-shewale/fx-platform/pkg/models"
	"github.com/shubham-shewale/fx-platform/pkg/protocol"
	shared "github.com/shubham-shewale/fx-platform/pkg/testutils"
)

type fixture struct {
	loop          *streamer.Loop
	hub           *hub.Hub
	source        *testutils.MockPriceSource
	configs       *testutils.MockConfigs
	instruments   *testutils.MockInstruments
	notifications *testutils.MockNotifications
	publisher     *testutils.MockPublisher
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func setup() *fixture {
	f := &fixture{
		hub: hub.NewHub(zap.NewNop()),
		source: &testutils.MockPriceSource{Snapshot: models.PriceSnapshot{
			{Symbol: "EURUSD", Price: 1.0850, ObservedAt: fixedNow},
		}},
		instruments:   &testutils.MockInstruments{Index: map[string]int64{"EURUSD": 7}},
		configs:       &testutils.MockConfigs{},
		notifications: &testutils.MockNotifications{},
		publisher:     &testutils.MockPublisher{},
	}
	f.loop = streamer.NewLoop(streamer.Deps{
		Source:        f.source,
		Instruments:   f.instruments,
		Configs:       f.configs,
		Notifications: f.notifications,
		Publisher:     f.publisher,
		Hub:           f.hub,
	}, streamer.Options{InitialDelay: 10 * time.Millisecond, Interval: time.Hour, FetchTimeout: time.Second}, zap.NewNop())
	f.loop.SetClock(func() time.Time { return fixedNow })
	return f
}

func buy(user int64, target float64) models.UserConfiguration {
	return models.UserConfiguration{UserID: user, InstrumentID: 7, TargetPrice: optional.Some(target), OperationType: models.OperationBuy, IsActive: true}
}

func TestTick_AlertsBeforePrices(t *testing.T) {
	f := setup()
	f.configs.Configs = []models.UserConfiguration{buy(1, 1.0800), buy(2, 1.2000)}
	c := shared.NewMockConn("c1")
	f.hub.Register(c)

	res, err := f.loop.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, streamer.TickResult{Prices: 1, Alerts: 1, Delivered: 1}, res)
	assert.Equal(t, []string{protocol.TypeTargetReached, protocol.TypePrices}, c.Types())

	var alert protocol.TargetReachedMessage
	require.NoError(t, json.Unmarshal(c.Messages()[0], &alert))
	assert.Equal(t, int64(1), alert.Notification.UserID)
	assert.Equal(t, streamer.AlertTitle, alert.Notification.Title)
	assert.Equal(t, "El precio objetivo de compra para EURUSD (Compra) ha sido alcanzado. Precio actual: 1.085000, Objetivo: 1.080000", alert.Notification.Message)
	assert.Equal(t, "2024-05-01 10:00:00", alert.Timestamp)

	var prices protocol.PricesMessage
	require.NoError(t, json.Unmarshal(c.Messages()[1], &prices))
	require.Len(t, prices.Data, 1)
	assert.Equal(t, "EURUSD", prices.Data[0].Instrument)
	assert.Equal(t, "2024-05-01 10:00:00.000000", prices.Data[0].Timestamp)

	require.Len(t, f.publisher.Published, 1)
	assert.Equal(t, int64(1), f.publisher.Published[0].NotificationID)
}

func TestTick_RepeatsAlertEveryTick(t *testing.T) {
	f := setup()
	f.configs.Configs = []models.UserConfiguration{buy(1, 1.0800)}

	for i := 0; i < 3; i++ {
		_, err := f.loop.Tick(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, f.notifications.Created, 3)
}

func TestTick_FetchFailureSkipsTick(t *testing.T) {
	f := setup()
	f.source.Err = errors.New("connection refused")
	f.configs.Configs = []models.UserConfiguration{buy(1, 1.0)}
	c := shared.NewMockConn("c1")
	f.hub.Register(c)

	_, err := f.loop.Tick(context.Background())

	assert.Error(t, err)
	assert.Empty(t, c.Messages())
	assert.Empty(t, f.notifications.Created)
}

func TestTick_StorageFailuresStillBroadcastPrices(t *testing.T) {
	f := setup()
	f.configs.Err = errors.New("db down")
	c := shared.NewMockConn("c1")
	f.hub.Register(c)

	res, err := f.loop.Tick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, res.Alerts)
	assert.Equal(t, []string{protocol.TypePrices}, c.Types())
}

func TestTick_OneAlertPersistenceFailureDoesNotStopOthers(t *testing.T) {
	f := setup()
	f.configs.Configs = []models.UserConfiguration{buy(1, 1.0), buy(2, 1.0), buy(3, 1.0)}
	f.notifications.FailUser = 2
	c := shared.NewMockConn("c1")
	f.hub.Register(c)

	res, err := f.loop.Tick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Alerts)
	assert.Equal(t, []string{protocol.TypeTargetReached, protocol.TypeTargetReached, protocol.TypePrices}, c.Types())
}

func TestTick_NoClientsStillEvaluates(t *testing.T) {
	f := setup()
	f.configs.Configs = []models.UserConfiguration{buy(1, 1.0)}

	res, err := f.loop.Tick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, res.Delivered)
	assert.Len(t, f.notifications.Created, 1)
}

func TestOnConnect_WelcomeThenOwnSnapshot(t *testing.T) {
	f := setup()
	late := shared.NewMockConn("late")
	other := shared.NewMockConn("other")
	f.hub.Register(other)

	f.loop.OnConnect(late)

	assert.True(t, f.hub.Has(late), "registration must be visible immediately")
	assert.Eventually(t, func() bool { return len(late.Messages()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{protocol.TypeConnection, protocol.TypePrices}, late.Types())
	assert.Empty(t, other.Messages(), "snapshot goes to the new connection alone")

	f.loop.OnDisconnect(late)
	assert.False(t, f.hub.Has(late))
}

func TestRun_InitialTickThenStop(t *testing.T) {
	f := setup()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.loop.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.source.CallCount() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	assert.Equal(t, 1, f.source.CallCount(), "interval is an hour, only the initial tick should run")
}

func TestAlertMessage_Sell(t *testing.T) {
	msg := streamer.AlertMessage(models.AlertEvent{Symbol: "ARG/USD", OperationType: models.OperationSell, CurrentPrice: 0.0011, TargetPrice: 0.0012})
	assert.Equal(t, "El precio objetivo de venta para ARG/USD (Venta) ha sido alcanzado. Precio actual: 0.001100, Objetivo: 0.001200", msg)
}
