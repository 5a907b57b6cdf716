package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
)

func newTestEvent(eventType string) integration.SyncEvent {
	return integration.NewSyncEvent(eventType, uuid.New(), uuid.New())
}

func TestBus_Publish(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	bus := NewBus(zap.New(core))

	var got []string
	bus.Subscribe(func(_ context.Context, e integration.SyncEvent) error {
		got = append(got, "failed:"+e.Type)
		return nil
	}, integration.EventSyncFailed, integration.EventReconnectRequired)
	bus.Subscribe(func(_ context.Context, e integration.SyncEvent) error {
		got = append(got, "all:"+e.Type)
		return nil
	})
	bus.Subscribe(func(context.Context, integration.SyncEvent) error {
		panic("boom")
	}, integration.EventSyncFailed)
	bus.Subscribe(func(context.Context, integration.SyncEvent) error {
		return errors.New("handler down")
	}, integration.EventSyncCompleted)

	bus.Publish(context.Background(), newTestEvent(integration.EventSyncFailed))
	bus.Publish(context.Background(), newTestEvent(integration.EventSyncCompleted))

	assert.Equal(t, []string{
		"failed:" + integration.EventSyncFailed,
		"all:" + integration.EventSyncFailed,
		"all:" + integration.EventSyncCompleted,
	}, got)
	assert.Equal(t, 2, logs.FilterMessage("Sync event handler failed").Len())
}

func TestFanout(t *testing.T) {
	a, b := NewBus(nil), NewBus(nil)
	count := 0
	h := func(context.Context, integration.SyncEvent) error { count++; return nil }
	a.Subscribe(h)
	b.Subscribe(h)

	Fanout{a, nil, b}.Publish(context.Background(), newTestEvent(integration.EventSyncCompleted))
	assert.Equal(t, 2, count)
}

func TestLogHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := LogHandler(zap.New(core))

	ok := newTestEvent(integration.EventSyncCompleted)
	ok.Report = &integration.SyncReport{Entity: integration.SyncEntityOrders, Status: integration.SyncStatusSuccess, Processed: 3}
	require.NoError(t, h(context.Background(), ok))

	failed := newTestEvent(integration.EventStockPushFailed)
	failed.Attributes = map[string]any{"product_id": "p-1"}
	require.NoError(t, h(context.Background(), failed))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(3), entries[0].ContextMap()["processed"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "p-1", entries[1].ContextMap()["product_id"])
}

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed++
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	t.Run("encodes event keyed by store", func(t *testing.T) {
		w := &recordingWriter{}
		p := NewKafkaPublisherWithWriter(w, nil)

		e := newTestEvent(integration.EventReconnectRequired)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p.Publish(ctx, e)

		require.Len(t, w.msgs, 1)
		m := w.msgs[0]
		assert.Equal(t, e.StoreID.String(), string(m.Key))
		assert.Equal(t, integration.EventReconnectRequired, Header(m, HeaderEventType))
		assert.Equal(t, e.TenantID.String(), Header(m, HeaderTenantID))

		decoded, err := Decode(m)
		require.NoError(t, err)
		assert.Equal(t, e.ID, decoded.ID)
		assert.Equal(t, e.StoreID, decoded.StoreID)
	})

	t.Run("write errors are logged, not returned", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		w := &recordingWriter{err: errors.New("broker down")}
		p := NewKafkaPublisherWithWriter(w, zap.New(core))

		p.Publish(context.Background(), newTestEvent(integration.EventSyncFailed))
		assert.Equal(t, 1, logs.FilterMessage("Failed to publish sync event").Len())
	})

	t.Run("closed publisher drops events", func(t *testing.T) {
		w := &recordingWriter{}
		p := NewKafkaPublisherWithWriter(w, nil)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
		assert.Equal(t, 1, w.closed)

		p.Publish(context.Background(), newTestEvent(integration.EventSyncFailed))
		assert.Empty(t, w.msgs)
	})
}
