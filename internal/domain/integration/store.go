package integration

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSyncIntervalMinutes is used when a store has no interval configured
const DefaultSyncIntervalMinutes = 15

// Store is a tenant-owned connection to one commerce platform instance.
// Credential fields hold the encrypted form; decryption happens in the
// client adapter only.
type Store struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	BaseURL  string

	// ConsumerKey and ConsumerSecret are encrypted at rest
	ConsumerKey    string
	ConsumerSecret string
	// WebhookSecret is encrypted at rest and optional
	WebhookSecret string

	IsActive            bool
	AutoSync            bool
	SyncIntervalMinutes int
	LastSyncAt          *time.Time
	NeedsReconnect      bool

	SyncOrders   bool
	SyncProducts bool

	// OrderDaysBack bounds the backlog window of the order pull
	OrderDaysBack *int
	// OrderSinceDate pins an explicit lower bound for the order pull
	OrderSinceDate *time.Time
	// OrderStatusFilter restricts pulled orders to these external statuses
	OrderStatusFilter []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStore creates a store with sync defaults applied
func NewStore(tenantID uuid.UUID, name, baseURL string) (*Store, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Store{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		Name:                strings.TrimSpace(name),
		BaseURL:             normalized,
		IsActive:            true,
		AutoSync:            true,
		SyncIntervalMinutes: DefaultSyncIntervalMinutes,
		SyncOrders:          true,
		SyncProducts:        true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// NormalizeBaseURL validates a store URL and strips any trailing slash
func NormalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrStoreInvalidBaseURL
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Interval returns the configured sync interval
func (s *Store) Interval() time.Duration {
	minutes := s.SyncIntervalMinutes
	if minutes <= 0 {
		minutes = DefaultSyncIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// MinutesSinceLastSync returns +Inf when the store has never synced
func (s *Store) MinutesSinceLastSync(now time.Time) float64 {
	if s.LastSyncAt == nil {
		return math.Inf(1)
	}
	return now.Sub(*s.LastSyncAt).Minutes()
}

// DueForSync reports whether the store's interval has elapsed at now
func (s *Store) DueForSync(now time.Time) bool {
	return s.MinutesSinceLastSync(now) >= s.Interval().Minutes()
}

// CanSyncOrders reports whether the order walker may run for this store
func (s *Store) CanSyncOrders() bool {
	return s.IsActive && s.SyncOrders
}

// CanSyncProducts reports whether the product walker may run for this store
func (s *Store) CanSyncProducts() bool {
	return s.IsActive && s.SyncProducts
}

// CredentialFingerprint identifies the current encrypted credential set.
// It changes whenever credentials are rotated.
func (s *Store) CredentialFingerprint() string {
	return s.BaseURL + "|" + s.ConsumerKey + "|" + s.ConsumerSecret
}

// Deactivate soft-disconnects the store
func (s *Store) Deactivate() {
	s.IsActive = false
	s.AutoSync = false
	s.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// StoreRepository Interface
// ---------------------------------------------------------------------------

// StoreRepository persists stores.
//
// FindByID is tenant-checked: a store owned by another tenant is reported as
// ErrStoreNotFound. The System* methods run outside any tenant and are meant
// for the scheduler and webhook entry points only.
type StoreRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Store, error)
	Create(ctx context.Context, store *Store) error
	Update(ctx context.Context, store *Store) error
	MarkSynced(ctx context.Context, storeID uuid.UUID, at time.Time) error
	MarkNeedsReconnect(ctx context.Context, storeID uuid.UUID) error

	SystemFindByID(ctx context.Context, id uuid.UUID) (*Store, error)
	SystemListAutoSync(ctx context.Context) ([]Store, error)
}
