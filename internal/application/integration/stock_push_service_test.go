package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
)

func boolPtr(b bool) *bool { return &b }

type pushFixture struct {
	env       *testEnv
	ctx       context.Context
	tenantID  uuid.UUID
	store     *integration.Store
	client    *fakeClient
	publisher *recordingPublisher
	service   *StockPushService
}

func newPushFixture(t *testing.T, tenantPush bool) *pushFixture {
	t.Helper()
	env := newTestEnv(t)
	tenantID := uuid.New()
	ctx := tenant.ContextFor(context.Background(), tenantID)
	store := env.createStore(t, tenantID, nil)

	settings := integration.DefaultTenantSyncSettings(tenantID)
	settings.PushStockEnabled = tenantPush
	require.NoError(t, env.settings.Save(ctx, settings))

	publisher := &recordingPublisher{}
	return &pushFixture{
		env:       env,
		ctx:       ctx,
		tenantID:  tenantID,
		store:     store,
		client:    env.clients.client.(*fakeClient),
		publisher: publisher,
		service:   NewStockPushService(env.deps(), publisher, nil, time.Second, zap.NewNop()),
	}
}

func (f *pushFixture) product(t *testing.T, stock, reserved int, override *bool) *integration.Product {
	t.Helper()
	p := &integration.Product{
		TenantID:          f.tenantID,
		StoreID:           f.store.ID,
		ExternalID:        "31",
		ExternalParentID:  "30",
		Name:              "Hoodie / L",
		StockQty:          stock,
		ReservedQty:       reserved,
		PushStockOverride: override,
		IsActive:          true,
	}
	_, err := f.env.products.UpsertByExternalID(f.ctx, p)
	require.NoError(t, err)
	return p
}

func TestStockPushService_Gate(t *testing.T) {
	tests := []struct {
		name       string
		tenantPush bool
		override   *bool
		wantPushed bool
	}{
		{"tenant enabled", true, nil, true},
		{"tenant disabled", false, nil, false},
		{"product forces push", false, boolPtr(true), true},
		{"product blocks push", true, boolPtr(false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPushFixture(t, tt.tenantPush)
			p := f.product(t, 10, 3, tt.override)

			result, err := f.service.Push(f.ctx, p.ID)
			require.NoError(t, err)

			if tt.wantPushed {
				assert.Equal(t, PushOutcomePushed, result.Outcome)
				require.Len(t, f.client.pushes, 1)
				assert.Equal(t, integration.StockUpdate{ExternalID: "31", ExternalParentID: "30", Quantity: 7}, f.client.pushes[0])
			} else {
				assert.Equal(t, PushOutcomeDisabled, result.Outcome)
				assert.Empty(t, f.client.pushes)
			}
		})
	}
}

func TestStockPushService_SellableNeverNegative(t *testing.T) {
	f := newPushFixture(t, true)
	p := f.product(t, 2, 5, nil)

	result, err := f.service.Push(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Quantity)
	assert.Equal(t, 0, f.client.pushes[0].Quantity)
}

func TestStockPushService_FailurePublishesEvent(t *testing.T) {
	f := newPushFixture(t, true)
	p := f.product(t, 4, 0, nil)
	f.client.pushErr = integration.ErrPlatformUnavailable

	result, err := f.service.Push(f.ctx, p.ID)
	require.ErrorIs(t, err, integration.ErrPlatformUnavailable)
	assert.Equal(t, PushOutcomeFailed, result.Outcome)

	require.Equal(t, []string{integration.EventStockPushFailed}, f.publisher.types())
	event := f.publisher.events[0]
	assert.Equal(t, f.store.ID, event.StoreID)
	assert.Equal(t, p.ID.String(), event.Attributes["product_id"])
}

func TestStockPushService_InactiveStore(t *testing.T) {
	f := newPushFixture(t, true)
	p := f.product(t, 4, 0, nil)

	f.store.Deactivate()
	require.NoError(t, f.env.stores.Update(f.ctx, f.store))

	_, err := f.service.Push(f.ctx, p.ID)
	require.ErrorIs(t, err, integration.ErrStoreInactive)
	assert.Empty(t, f.client.pushes)
}

func TestStockPushService_OtherTenantProduct(t *testing.T) {
	f := newPushFixture(t, true)
	p := f.product(t, 4, 0, nil)

	other := tenant.ContextFor(context.Background(), uuid.New())
	_, err := f.service.Push(other, p.ID)
	require.ErrorIs(t, err, integration.ErrProductNotFound)
	assert.Empty(t, f.client.pushes)
}

func TestStockPushService_PushAsyncSurvivesCallerCancel(t *testing.T) {
	f := newPushFixture(t, true)
	p := f.product(t, 6, 1, nil)
	f.client.pushErr = nil

	ctx, cancel := context.WithCancel(f.ctx)
	f.service.PushAsync(ctx, p.ID)
	cancel()
	f.service.Wait()

	require.Len(t, f.client.pushes, 1)
	assert.Equal(t, 5, f.client.pushes[0].Quantity)
}

func TestStockPushService_PushAsyncSwallowsFailure(t *testing.T) {
	f := newPushFixture(t, true)
	p := f.product(t, 6, 1, nil)
	f.client.pushErr = integration.ErrPlatformAuthFailed

	assert.NotPanics(t, func() {
		f.service.PushAsync(f.ctx, p.ID)
		f.service.Wait()
	})
	assert.Equal(t, []string{integration.EventStockPushFailed}, f.publisher.types())
}
