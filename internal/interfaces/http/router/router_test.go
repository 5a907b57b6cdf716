package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	integrationapp "github.com/alexthecreator0001/woowms-sub001/internal/application/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/auth"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/config"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/scheduler"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/handler"

	_ "github.com/alexthecreator0001/woowms-sub001/docs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMount(t *testing.T) {
	engine := gin.New()
	var guarded int
	guard := func(c *gin.Context) {
		guarded++
		c.Next()
	}

	widgets := NewResource("/widgets").
		Use(func(c *gin.Context) {
			c.Header("X-Resource", "widgets")
			c.Next()
		}).
		GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") }).
		DELETE("/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
	gadgets := NewResource("/gadgets").
		POST("", func(c *gin.Context) { c.Status(http.StatusCreated) })

	Mount(engine, "/api/v2", []gin.HandlerFunc{guard}, widgets, gadgets)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/widgets/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "widgets", w.Header().Get("X-Resource"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/widgets/abc", nil))
	assert.Equal(t, "abc", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v2/gadgets", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("X-Resource"), "resource middleware stays scoped")

	assert.Equal(t, 3, guarded)
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

type fakeStores struct {
	lastTenant uuid.UUID
}

func (f *fakeStores) CreateStore(ctx context.Context, _ integrationapp.CreateStoreRequest) (*integrationapp.StoreResponse, error) {
	return &integrationapp.StoreResponse{ID: uuid.New()}, nil
}

func (f *fakeStores) GetStore(ctx context.Context, id uuid.UUID) (*integrationapp.StoreResponse, error) {
	f.lastTenant, _ = tenant.FromContext(ctx)
	return &integrationapp.StoreResponse{ID: id, TenantID: f.lastTenant}, nil
}

func (f *fakeStores) UpdateStore(_ context.Context, id uuid.UUID, _ integrationapp.UpdateStoreRequest) (*integrationapp.StoreResponse, error) {
	return &integrationapp.StoreResponse{ID: id}, nil
}

func (f *fakeStores) RotateCredentials(_ context.Context, id uuid.UUID, _ integrationapp.RotateCredentialsRequest) (*integrationapp.StoreResponse, error) {
	return &integrationapp.StoreResponse{ID: id}, nil
}

func (f *fakeStores) DeactivateStore(context.Context, uuid.UUID) error { return nil }

func (f *fakeStores) TriggerSync(_ context.Context, id uuid.UUID) (*integrationapp.ManualSyncResponse, error) {
	return &integrationapp.ManualSyncResponse{StoreID: id}, nil
}

type fakeWebhooks struct{ calls int }

func (f *fakeWebhooks) Handle(context.Context, integrationapp.WebhookDelivery) (*integrationapp.WebhookResult, error) {
	f.calls++
	return &integrationapp.WebhookResult{Outcome: integrationapp.WebhookPing}, nil
}

type fakePusher struct{}

func (fakePusher) Push(_ context.Context, id uuid.UUID) (*integrationapp.PushResult, error) {
	return &integrationapp.PushResult{ProductID: id, Outcome: integrationapp.PushOutcomeDisabled}, nil
}

func (fakePusher) PushAsync(context.Context, uuid.UUID) {}

type fakeSettings struct{}

func (fakeSettings) GetSettings(context.Context) (*integrationapp.SettingsResponse, error) {
	return &integrationapp.SettingsResponse{}, nil
}

func (fakeSettings) UpdateSettings(context.Context, integrationapp.UpdateSettingsRequest) (*integrationapp.SettingsResponse, error) {
	return &integrationapp.SettingsResponse{}, nil
}

type fakeStatus struct{}

func (fakeStatus) StatusForTenant(uuid.UUID) scheduler.Status { return scheduler.Status{} }

type testEngine struct {
	engine   *gin.Engine
	jwt      *auth.JWTService
	stores   *fakeStores
	webhooks *fakeWebhooks
}

func newTestEngine(t *testing.T, opts ...func(*Config)) *testEngine {
	t.Helper()
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "router-test-secret-32-characters!", Issuer: "woo-sync"})
	stores := &fakeStores{}
	webhooks := &fakeWebhooks{}

	cfg := Config{
		ServiceName:         "woo-sync-test",
		WebhookMaxBodyBytes: 1 << 10,
		ManualSyncLimit:     2,
		ManualSyncWindow:    time.Minute,
		Validator:           jwtSvc,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	engine, err := New(cfg, Handlers{
		System:     handler.NewSystemHandler("woo-sync", "test"),
		Webhook:    handler.NewWebhookHandler(webhooks),
		Store:      handler.NewStoreHandler(stores),
		Product:    handler.NewProductHandler(fakePusher{}),
		Settings:   handler.NewSettingsHandler(fakeSettings{}),
		SyncStatus: handler.NewSyncStatusHandler(fakeStatus{}),
	})
	require.NoError(t, err)
	return &testEngine{engine: engine, jwt: jwtSvc, stores: stores, webhooks: webhooks}
}

func (te *testEngine) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	te.engine.ServeHTTP(w, req)
	return w
}

func (te *testEngine) token(t *testing.T, tenantID uuid.UUID) string {
	t.Helper()
	tok, _, err := te.jwt.Issue(auth.TokenRequest{TenantID: tenantID, UserID: uuid.New(), Username: "ops"})
	require.NoError(t, err)
	return tok
}

func TestNew_PublicRoutes(t *testing.T) {
	te := newTestEngine(t)

	w := te.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = te.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = te.do(http.MethodPost, "/webhooks/woocommerce/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, te.webhooks.calls)
}

func TestNew_APIRequiresToken(t *testing.T) {
	te := newTestEngine(t)
	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/stores/" + uuid.NewString()},
		{http.MethodPost, "/api/v1/stores/" + uuid.NewString() + "/sync"},
		{http.MethodPost, "/api/v1/products/" + uuid.NewString() + "/push-stock"},
		{http.MethodGet, "/api/v1/settings"},
		{http.MethodGet, "/api/v1/sync/status"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := te.do(p.method, p.path, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestNew_TenantFromToken(t *testing.T) {
	te := newTestEngine(t)
	tenantID := uuid.New()

	w := te.do(http.MethodGet, "/api/v1/stores/"+uuid.NewString(), te.token(t, tenantID))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenantID, te.stores.lastTenant)
}

func TestNew_ManualSyncRateLimited(t *testing.T) {
	te := newTestEngine(t)
	tok := te.token(t, uuid.New())
	path := "/api/v1/stores/" + uuid.NewString() + "/sync"

	assert.Equal(t, http.StatusOK, te.do(http.MethodPost, path, tok).Code)
	assert.Equal(t, http.StatusOK, te.do(http.MethodPost, path, tok).Code)

	w := te.do(http.MethodPost, path, tok)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// another store has its own budget
	assert.Equal(t, http.StatusOK, te.do(http.MethodPost, "/api/v1/stores/"+uuid.NewString()+"/sync", tok).Code)
}

func TestNew_SwaggerDocs(t *testing.T) {
	t.Run("not mounted by default", func(t *testing.T) {
		te := newTestEngine(t)
		assert.Equal(t, http.StatusNotFound, te.do(http.MethodGet, "/swagger/doc.json", "").Code)
	})

	t.Run("serves the api document", func(t *testing.T) {
		te := newTestEngine(t, func(c *Config) { c.Swagger = true })
		w := te.do(http.MethodGet, "/swagger/doc.json", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"/api/v1/stores/{id}/sync"`)
		assert.Contains(t, w.Body.String(), `"/webhooks/woocommerce/{storeId}"`)
	})

	t.Run("behind the bearer token", func(t *testing.T) {
		te := newTestEngine(t, func(c *Config) {
			c.Swagger = true
			c.SwaggerAuth = true
		})
		assert.Equal(t, http.StatusUnauthorized, te.do(http.MethodGet, "/swagger/doc.json", "").Code)
		assert.Equal(t, http.StatusOK, te.do(http.MethodGet, "/swagger/doc.json", te.token(t, uuid.New())).Code)
	})
}
