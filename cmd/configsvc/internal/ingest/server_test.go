package ingest_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/cmd/configsvc/internal/ingest"
	"github.com/shubham-shewale/fx-platform/cmd/configsvc/internal/testutils"
	"github.com/shubham-shewale/fx-platform/pkg/configuration"
	"github.com/shubham-shewale/fx-platform/pkg/hub"
	"github.com/shubham-shewale/fx-platform/pkg/models"
	"github.com/shubham-shewale/fx-platform/pkg/notify"
	"github.com/shubham-shewale/fx-platform/pkg/protocol"
	shared "github.com/shubham-shewale/fx-platform/pkg/testutils"
)

func setup() (*ingest.Server, *hub.Hub, *testutils.MockSaver, *testutils.MockNotifier) {
	h := hub.NewHub(zap.NewNop())
	saver := &testutils.MockSaver{Result: configuration.BatchResult{
		Success: []models.ConfigurationView{{ID: 1, UserID: 5, InstrumentID: 1, OperationType: models.OperationBuy}},
		Errors:  []configuration.ItemError{},
	}}
	notifier := &testutils.MockNotifier{}
	s := ingest.NewServer(saver, notifier, h, ingest.Options{MessagesPerSecond: 5, Burst: 10}, zap.NewNop())
	s.SetClock(func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) })
	return s, h, saver, notifier
}

func TestOnConnect_Welcome(t *testing.T) {
	s, h, _, _ := setup()
	c := shared.NewMockConn("c1")

	s.OnConnect(c)

	var msg protocol.ConnectionMessage
	require.True(t, c.Last(&msg))
	assert.Equal(t, protocol.TypeConnection, msg.Type)
	assert.Equal(t, protocol.WelcomeConfigurations, msg.Message)
	assert.True(t, h.Has(c))
}

func TestHandleMessage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"not json", `{"user_id": 1, "configurati`, protocol.MsgInvalidJSON},
		{"missing configurations", `{"user_id": 1}`, protocol.MsgMissingFields},
		{"missing user_id", `{"configurations": []}`, protocol.MsgMissingFields},
		{"null configurations", `{"user_id": 1, "configurations": null}`, protocol.MsgMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, h, saver, notifier := setup()
			c := shared.NewMockConn("c1")
			other := shared.NewMockConn("other")
			h.Register(c)
			h.Register(other)

			s.HandleMessage(context.Background(), c, []byte(tt.raw))

			require.Len(t, c.Messages(), 1)
			var resp protocol.ConfigResponse
			require.True(t, c.Last(&resp))
			assert.Equal(t, protocol.TypeError, resp.Type)
			assert.Equal(t, tt.want, resp.Message)

			assert.Zero(t, saver.Calls(), "no storage writes on malformed input")
			assert.Empty(t, notifier.Notices)
			assert.Empty(t, other.Messages())
		})
	}
}

func TestHandleMessage_SuccessEchoesTimestampAndNotifiesOthers(t *testing.T) {
	s, h, saver, notifier := setup()
	origin := shared.NewMockConn("origin")
	other := shared.NewMockConn("other")
	h.Register(origin)
	h.Register(other)

	raw := `{"user_id":5,"configurations":[{"instrument_id":1,"target_price":1.1,"operation_type":"buy"}],"timestamp":"2024-04-30 09:00:00"}`
	s.HandleMessage(context.Background(), origin, []byte(raw))

	var resp protocol.ConfigResponse
	require.True(t, origin.Last(&resp))
	assert.Equal(t, protocol.TypeSuccess, resp.Type)
	assert.Equal(t, "2024-04-30 09:00:00", resp.Timestamp)
	assert.Equal(t, protocol.MsgBatchOK, resp.Message)
	require.NotNil(t, resp.Data)
	assert.Len(t, resp.Data.Success, 1)
	assert.NotNil(t, resp.Data.Errors)

	require.Equal(t, 1, saver.Calls())
	require.Len(t, saver.Batches[0], 1)
	assert.Equal(t, int64(1), *saver.Batches[0][0].InstrumentID)

	assert.Equal(t, []testutils.BatchNotice{{UserID: 5, ErrCount: 0, Suffix: notify.ViaWebSocket}}, notifier.Notices)

	var notice protocol.NotificationMessage
	require.True(t, other.Last(&notice))
	assert.Equal(t, protocol.ConfigsUpdated(5), notice)
	assert.Len(t, origin.Messages(), 1, "origin gets the reply, not the notice")
}

func TestHandleMessage_PartialFailureIsWarning(t *testing.T) {
	s, h, saver, notifier := setup()
	id := int64(999)
	saver.Result.Errors = []configuration.ItemError{{InstrumentID: &id, Error: configuration.MsgInstrumentNotFound}}
	c := shared.NewMockConn("c1")
	h.Register(c)

	s.HandleMessage(context.Background(), c, []byte(`{"user_id":5,"configurations":[{"instrument_id":1},{"instrument_id":999}]}`))

	raw := c.Messages()
	require.Len(t, raw, 1)
	var resp struct {
		Type      string `json:"type"`
		Timestamp string `json:"timestamp"`
		Data      struct {
			Success []json.RawMessage `json:"success"`
			Errors  []struct {
				InstrumentID int64  `json:"instrument_id"`
				Error        string `json:"error"`
			} `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw[0], &resp))
	assert.Equal(t, protocol.TypeWarning, resp.Type)
	assert.Equal(t, "2024-05-01 10:00:00", resp.Timestamp)
	assert.Len(t, resp.Data.Success, 1)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, int64(999), resp.Data.Errors[0].InstrumentID)
	assert.Equal(t, 1, notifier.Notices[0].ErrCount)
}

func TestHandleMessage_NotificationFailureStillReplies(t *testing.T) {
	s, h, _, notifier := setup()
	notifier.Fail = true
	c := shared.NewMockConn("c1")
	h.Register(c)

	s.HandleMessage(context.Background(), c, []byte(`{"user_id":5,"configurations":[]}`))

	var resp protocol.ConfigResponse
	require.True(t, c.Last(&resp))
	assert.Equal(t, protocol.TypeSuccess, resp.Type)
}

func TestHandleMessage_PanicBecomesGenericError(t *testing.T) {
	s, h, saver, _ := setup()
	saver.Panic = true
	c := shared.NewMockConn("c1")
	other := shared.NewMockConn("other")
	h.Register(c)
	h.Register(other)

	assert.NotPanics(t, func() {
		s.HandleMessage(context.Background(), c, []byte(`{"user_id":5,"configurations":[{"instrument_id":1}]}`))
	})

	var resp protocol.ConfigResponse
	require.True(t, c.Last(&resp))
	assert.Equal(t, protocol.TypeError, resp.Type)
	assert.Equal(t, configuration.MsgInternal, resp.Message)
	assert.NotContains(t, string(c.Messages()[0]), "database handle")
	assert.Empty(t, other.Messages())
}

func TestOnDisconnect(t *testing.T) {
	s, h, _, _ := setup()
	c := shared.NewMockConn("c1")
	s.OnConnect(c)
	s.OnDisconnect(c)
	s.OnDisconnect(c)
	assert.False(t, h.Has(c))
}
