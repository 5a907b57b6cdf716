package integration

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func boolPtr(v bool) *bool { return &v }

func TestProduct_SellableQuantity(t *testing.T) {
	assert.Equal(t, 7, (&Product{StockQty: 10, ReservedQty: 3}).SellableQuantity())
	assert.Equal(t, 0, (&Product{StockQty: 2, ReservedQty: 5}).SellableQuantity())
}

func TestProduct_ShouldPushStock(t *testing.T) {
	tests := []struct {
		name          string
		tenantEnabled bool
		override      *bool
		want          bool
	}{
		{name: "tenant off, product on", tenantEnabled: false, override: boolPtr(true), want: true},
		{name: "tenant on, product off", tenantEnabled: true, override: boolPtr(false), want: false},
		{name: "tenant on, no override", tenantEnabled: true, override: nil, want: true},
		{name: "tenant off, no override", tenantEnabled: false, override: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{PushStockOverride: tt.override}
			assert.Equal(t, tt.want, p.ShouldPushStock(tt.tenantEnabled))
		})
	}
}

func TestProduct_IsLowStock(t *testing.T) {
	assert.True(t, (&Product{StockQty: 5, LowStockThreshold: 5}).IsLowStock())
	assert.False(t, (&Product{StockQty: 6, LowStockThreshold: 5}).IsLowStock())
	assert.False(t, (&Product{StockQty: 0, LowStockThreshold: 0}).IsLowStock())
}

func TestSyncReport_Finish(t *testing.T) {
	store := &Store{}
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		r := NewSyncReport(store, SyncEntityOrders, now)
		r.RecordSuccess(true)
		r.RecordSuccess(false)
		r.Finish(now, nil)
		assert.Equal(t, SyncStatusSuccess, r.Status)
		assert.Equal(t, 2, r.Processed)
		assert.Equal(t, 1, r.Created)
		assert.Equal(t, 1, r.Updated)
	})

	t.Run("partial", func(t *testing.T) {
		r := NewSyncReport(store, SyncEntityOrders, now)
		r.RecordSuccess(true)
		r.RecordFailure("42", errors.New("bad line"))
		r.Finish(now, nil)
		assert.Equal(t, SyncStatusPartial, r.Status)
		assert.Len(t, r.Failures, 1)
		assert.Equal(t, "42", r.Failures[0].ExternalID)
	})

	t.Run("aborted", func(t *testing.T) {
		r := NewSyncReport(store, SyncEntityProducts, now)
		r.Finish(now, ErrPlatformUnavailable)
		assert.Equal(t, SyncStatusFailed, r.Status)
		assert.Contains(t, r.Error, "unavailable")
	})
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsTransient(ErrPlatformUnavailable))
	assert.True(t, IsTransient(ErrPlatformRateLimited))
	assert.False(t, IsTransient(ErrPlatformAuthFailed))
	assert.True(t, IsAuthFailure(ErrPlatformAuthFailed))
}
