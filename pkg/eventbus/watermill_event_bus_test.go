package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/datapilot/pkg/channels/gochannel"
	"github.com/dukex/datapilot/pkg/eventbus"
	"github.com/dukex/datapilot/pkg/events"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub := gochannel.CreateChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	t.Parallel()

	bus := newBus(t)

	received := make(chan *events.RunFinished, 1)

	require.NoError(t, bus.Handle(events.RunFinishedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.RunFinished)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	published := events.RunFinished{
		BaseEvent: events.NewBaseEvent(events.RunFinishedEvent, "run-1"),
		Status:    models.RunStatusSuccess,
		Artifacts: models.Artifacts{models.ArtifactCSV: "artifacts/data.csv"},
		RowCount:  3,
	}
	require.NoError(t, bus.Publish(t.Context(), "run-1", published))

	select {
	case got := <-received:
		assert.Equal(t, "run-1", got.RunID)
		assert.Equal(t, models.RunStatusSuccess, got.Status)
		assert.Equal(t, 3, got.RowCount)
		assert.Equal(t, "artifacts/data.csv", got.Artifacts[models.ArtifactCSV])
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_UnhandledTypesAreDropped(t *testing.T) {
	t.Parallel()

	bus := newBus(t)

	received := make(chan events.EventType, 2)

	require.NoError(t, bus.Handle(events.RunStartedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.RunStarted).GetType()

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "run-2", events.StageCompleted{
		BaseEvent: events.NewBaseEvent(events.StageCompletedEvent, "run-2"),
		Stage:     models.StageNLP,
	}))
	require.NoError(t, bus.Publish(t.Context(), "run-2", events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, "run-2"),
		Question:  "orders by status",
	}))

	select {
	case got := <-received:
		assert.Equal(t, events.RunStartedEvent, got)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}

	assert.Empty(t, received)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := newBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
