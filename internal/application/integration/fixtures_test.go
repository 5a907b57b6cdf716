package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/models"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
)

// ---------------------------------------------------------------------------
// SQLite-backed repositories
// ---------------------------------------------------------------------------

type testEnv struct {
	db       *gorm.DB
	stores   *persistence.GormStoreRepository
	orders   *persistence.GormOrderRepository
	products *persistence.GormProductRepository
	settings *persistence.GormTenantSettingsRepository
	clients  *stubClientProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	wrapped, err := persistence.WrapDatabase(db)
	require.NoError(t, err)

	return &testEnv{
		db:       wrapped.DB,
		stores:   persistence.NewGormStoreRepository(wrapped.DB),
		orders:   persistence.NewGormOrderRepository(wrapped.DB),
		products: persistence.NewGormProductRepository(wrapped.DB),
		settings: persistence.NewGormTenantSettingsRepository(wrapped.DB),
		clients:  &stubClientProvider{client: newFakeClient()},
	}
}

func (e *testEnv) deps() SyncDependencies {
	return SyncDependencies{
		Stores:   e.stores,
		Orders:   e.orders,
		Products: e.products,
		Settings: e.settings,
		Clients:  e.clients,
	}
}

func (e *testEnv) createStore(t *testing.T, tenantID uuid.UUID, edit func(*integration.Store)) *integration.Store {
	t.Helper()
	store, err := integration.NewStore(tenantID, "Demo", "https://shop.example.com")
	require.NoError(t, err)
	store.ConsumerKey = "ck"
	store.ConsumerSecret = "cs"
	if edit != nil {
		edit(store)
	}
	require.NoError(t, e.stores.Create(tenant.ContextFor(context.Background(), tenantID), store))
	return store
}

func (e *testEnv) reloadStore(t *testing.T, store *integration.Store) *integration.Store {
	t.Helper()
	got, err := e.stores.FindByID(tenant.ContextFor(context.Background(), store.TenantID), store.ID)
	require.NoError(t, err)
	return got
}

func (e *testEnv) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.WithContext(tenant.WithSystemScope(context.Background())).Table(table).Count(&n).Error)
	return n
}

func fixedTime(t time.Time) Clock {
	return func() time.Time { return t }
}

// ---------------------------------------------------------------------------
// Fake platform client
// ---------------------------------------------------------------------------

type fakeClient struct {
	mu sync.Mutex

	orders      []integration.RemoteOrder
	products    []integration.RemoteProduct
	currency    string
	currencyErr error
	listErr     error
	failOnPage  int
	pushErr     error

	orderQueries []integration.OrderQuery
	pushes       []integration.StockUpdate
}

func newFakeClient() *fakeClient {
	return &fakeClient{currency: "EUR"}
}

func paginate[T any](items []T, page, perPage int) *integration.Page[T] {
	total := (len(items) + perPage - 1) / perPage
	start := (page - 1) * perPage
	if start >= len(items) {
		return &integration.Page[T]{TotalPages: total}
	}
	end := min(start+perPage, len(items))
	return &integration.Page[T]{Items: items[start:end], TotalPages: total}
}

func (c *fakeClient) ListOrders(_ context.Context, q integration.OrderQuery) (*integration.Page[integration.RemoteOrder], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderQueries = append(c.orderQueries, q)
	if c.listErr != nil && (c.failOnPage == 0 || c.failOnPage == q.Page) {
		return nil, c.listErr
	}
	var matched []integration.RemoteOrder
	for _, o := range c.orders {
		modified := o.ModifiedAt
		if modified.IsZero() {
			modified = o.CreatedAt
		}
		if q.ModifiedAfter == nil || modified.After(*q.ModifiedAfter) {
			matched = append(matched, o)
		}
	}
	return paginate(matched, q.Page, q.PerPage), nil
}

func (c *fakeClient) ListProducts(_ context.Context, page, perPage int) (*integration.Page[integration.RemoteProduct], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil && (c.failOnPage == 0 || c.failOnPage == page) {
		return nil, c.listErr
	}
	return paginate(c.products, page, perPage), nil
}

func (c *fakeClient) UpdateStock(_ context.Context, update integration.StockUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pushErr != nil {
		return c.pushErr
	}
	c.pushes = append(c.pushes, update)
	return nil
}

func (c *fakeClient) GetCurrency(context.Context) (string, error) {
	return c.currency, c.currencyErr
}

type stubClientProvider struct {
	client      integration.CommerceClient
	err         error
	invalidated []uuid.UUID
}

func (p *stubClientProvider) ForStore(context.Context, *integration.Store) (integration.CommerceClient, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.client, nil
}

func (p *stubClientProvider) Invalidate(storeID uuid.UUID) {
	p.invalidated = append(p.invalidated, storeID)
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// MockStoreRepository is a mock implementation of StoreRepository
type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Store), args.Error(1)
}

func (m *MockStoreRepository) Create(ctx context.Context, store *integration.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) Update(ctx context.Context, store *integration.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) MarkSynced(ctx context.Context, storeID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, storeID, at)
	return args.Error(0)
}

func (m *MockStoreRepository) MarkNeedsReconnect(ctx context.Context, storeID uuid.UUID) error {
	args := m.Called(ctx, storeID)
	return args.Error(0)
}

func (m *MockStoreRepository) SystemFindByID(ctx context.Context, id uuid.UUID) (*integration.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Store), args.Error(1)
}

func (m *MockStoreRepository) SystemListAutoSync(ctx context.Context) ([]integration.Store, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Store), args.Error(1)
}

// MockWalker is a mock implementation of Walker
type MockWalker struct {
	mock.Mock
}

func (m *MockWalker) Run(ctx context.Context, store *integration.Store) (*integration.SyncReport, error) {
	args := m.Called(ctx, store)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncReport), args.Error(1)
}

// MockEntityRunner is a mock implementation of EntityRunner
type MockEntityRunner struct {
	mock.Mock
}

func (m *MockEntityRunner) RunOrders(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) (*integration.SyncReport, error) {
	args := m.Called(ctx, store, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncReport), args.Error(1)
}

func (m *MockEntityRunner) RunProducts(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) (*integration.SyncReport, error) {
	args := m.Called(ctx, store, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncReport), args.Error(1)
}

// MockLocker is a mock implementation of shared.Locker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	args := m.Called(ctx, key, ttl)
	release, _ := args.Get(0).(func())
	return release, args.Bool(1), args.Error(2)
}

// MockDeliveryStore is a mock implementation of shared.DeliveryStore
type MockDeliveryStore struct {
	mock.Mock
}

func (m *MockDeliveryStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeliveryStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeliveryStore) Close() error {
	return m.Called().Error(0)
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []integration.SyncEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e integration.SyncEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// plainCipher "encrypts" by prefixing, which is enough to tell stored and
// plaintext values apart
type plainCipher struct{}

func (plainCipher) Encrypt(s string) (string, error) { return "enc:" + s, nil }

func (plainCipher) Decrypt(s string) (string, error) {
	if len(s) < 4 || s[:4] != "enc:" {
		return "", integration.ErrCredentialDecryptFail
	}
	return s[4:], nil
}
