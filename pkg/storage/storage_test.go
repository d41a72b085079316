package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/fx-platform/pkg/models"
	"github.com/shubham-shewale/fx-platform/pkg/storage"
)

func setup(t *testing.T) (*storage.DB, models.Instrument) {
	t.Helper()
	ctx := context.Background()

	db, err := storage.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	inst, err := db.Instruments().Upsert(ctx, models.Instrument{
		Symbol: "EUR/USD", Name: "Euro / US Dollar", BaseCurrency: "EUR", QuoteCurrency: "USD",
	})
	require.NoError(t, err)
	return db, inst
}

func TestInstruments_UpsertIsIdempotentBySymbol(t *testing.T) {
	db, first := setup(t)
	ctx := context.Background()

	again, err := db.Instruments().Upsert(ctx, models.Instrument{
		Symbol: "EUR/USD", Name: "Euro", BaseCurrency: "EUR", QuoteCurrency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Euro", again.Name)

	index, err := db.Instruments().SymbolIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"EUR/USD": first.ID}, index)

	_, err = db.Instruments().FindBySymbol(ctx, "GBP/USD")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConfigurations_SaveTwiceKeepsOneRow(t *testing.T) {
	db, inst := setup(t)
	ctx := context.Background()
	store := db.Configurations()

	first, err := store.Save(ctx, models.UserConfiguration{
		UserID: 1, InstrumentID: inst.ID, TargetPrice: optional.Some(1.08), OperationType: models.OperationBuy,
	})
	require.NoError(t, err)

	second, err := store.Save(ctx, models.UserConfiguration{
		UserID: 1, InstrumentID: inst.ID, TargetPrice: optional.Some(1.12), OperationType: models.OperationSell,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1.12, second.TargetPrice.Unwrap())
	assert.Equal(t, models.OperationSell, second.OperationType)
	assert.True(t, second.UpdatedAt.IsSome())

	rows, err := store.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.12, rows[0].TargetPrice.Unwrap())
}

func TestConfigurations_ConcurrentSavesConverge(t *testing.T) {
	db, inst := setup(t)
	ctx := context.Background()
	store := db.Configurations()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = store.Save(ctx, models.UserConfiguration{
				UserID: 7, InstrumentID: inst.ID, TargetPrice: optional.Some(1.0 + float64(i)/100), OperationType: models.OperationBuy,
			})
		}(i)
	}
	wg.Wait()

	rows, err := store.ListByUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestConfigurations_ActiveWithTargetSkipsNullAndInactive(t *testing.T) {
	db, inst := setup(t)
	ctx := context.Background()
	store := db.Configurations()

	other, err := db.Instruments().Upsert(ctx, models.Instrument{Symbol: "ARG/USD", Name: "Peso / Dollar", BaseCurrency: "ARS", QuoteCurrency: "USD"})
	require.NoError(t, err)

	_, err = store.Save(ctx, models.UserConfiguration{UserID: 1, InstrumentID: inst.ID, TargetPrice: optional.Some(1.1), OperationType: models.OperationBuy})
	require.NoError(t, err)
	_, err = store.Save(ctx, models.UserConfiguration{UserID: 2, InstrumentID: inst.ID, TargetPrice: optional.None[float64](), OperationType: models.OperationBuy})
	require.NoError(t, err)
	_, err = store.Save(ctx, models.UserConfiguration{UserID: 3, InstrumentID: other.ID, TargetPrice: optional.Some(0.001), OperationType: models.OperationSell})
	require.NoError(t, err)
	require.NoError(t, store.Deactivate(ctx, 3, other.ID))

	active, err := store.ActiveWithTarget(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(1), active[0].UserID)

	// saving again reactivates the same row
	revived, err := store.Save(ctx, models.UserConfiguration{UserID: 3, InstrumentID: other.ID, TargetPrice: optional.Some(0.002), OperationType: models.OperationSell})
	require.NoError(t, err)
	assert.True(t, revived.IsActive)

	assert.ErrorIs(t, store.Deactivate(ctx, 99, other.ID), storage.ErrNotFound)
}

func TestNotifications_Lifecycle(t *testing.T) {
	db, _ := setup(t)
	ctx := context.Background()
	store := db.Notifications()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	db.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	first, err := store.Create(ctx, models.Notification{UserID: 1, Type: models.NotificationSuccess, Title: "a", Message: "first"})
	require.NoError(t, err)
	_, err = store.Create(ctx, models.Notification{UserID: 1, Type: models.NotificationWarning, Title: "b", Message: "second"})
	require.NoError(t, err)
	_, err = store.Create(ctx, models.Notification{UserID: 2, Type: models.NotificationInfo, Title: "c", Message: "other user"})
	require.NoError(t, err)

	list, err := store.ListByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
	assert.False(t, list[0].IsRead)

	count, err := store.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.MarkRead(ctx, 1, first.ID))
	require.NoError(t, store.MarkRead(ctx, 1, first.ID))

	count, err = store.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.ErrorIs(t, store.MarkRead(ctx, 2, first.ID), storage.ErrNotFound)
}
