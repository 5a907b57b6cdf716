package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
)

// Decrypter turns a stored credential into its plaintext form
type Decrypter interface {
	Decrypt(stored string) (string, error)
}

type cachedClient struct {
	fingerprint string
	client      integration.CommerceClient
}

// ClientProvider builds one WooCommerce client per store and caches it by
// store id. A cached client is rebuilt when the store's encrypted
// credentials no longer match the ones it was built from.
type ClientProvider struct {
	decrypter Decrypter
	timeout   time.Duration
	transport http.RoundTripper
	logger    *zap.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]cachedClient
}

var _ integration.ClientProvider = (*ClientProvider)(nil)

// ClientProviderOption configures a ClientProvider
type ClientProviderOption func(*ClientProvider)

// WithClientTimeout sets the per-request timeout of built clients
func WithClientTimeout(d time.Duration) ClientProviderOption {
	return func(p *ClientProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithClientTransport sets the HTTP transport of built clients
func WithClientTransport(rt http.RoundTripper) ClientProviderOption {
	return func(p *ClientProvider) {
		p.transport = rt
	}
}

// NewClientProvider creates a provider that decrypts credentials with d
func NewClientProvider(d Decrypter, logger *zap.Logger, opts ...ClientProviderOption) *ClientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &ClientProvider{
		decrypter: d,
		timeout:   DefaultWooCommerceTimeout,
		logger:    logger.Named("woocommerce"),
		clients:   make(map[uuid.UUID]cachedClient),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ForStore returns the cached client for store, building it on first use
func (p *ClientProvider) ForStore(ctx context.Context, store *integration.Store) (integration.CommerceClient, error) {
	if store == nil {
		return nil, integration.ErrStoreNotFound
	}
	fingerprint := store.CredentialFingerprint()

	p.mu.RLock()
	entry, ok := p.clients[store.ID]
	p.mu.RUnlock()
	if ok && entry.fingerprint == fingerprint {
		return entry.client, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.clients[store.ID]; ok && entry.fingerprint == fingerprint {
		return entry.client, nil
	}

	client, err := p.build(store)
	if err != nil {
		return nil, err
	}
	p.clients[store.ID] = cachedClient{fingerprint: fingerprint, client: client}

	p.logger.Debug("WooCommerce client built",
		zap.String("store_id", store.ID.String()),
		zap.String("tenant_id", store.TenantID.String()),
		zap.Bool("rebuilt", ok),
	)
	return client, nil
}

// Invalidate drops the cached client of a store
func (p *ClientProvider) Invalidate(storeID uuid.UUID) {
	p.mu.Lock()
	delete(p.clients, storeID)
	p.mu.Unlock()
}

// Len returns the number of cached clients
func (p *ClientProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

func (p *ClientProvider) build(store *integration.Store) (integration.CommerceClient, error) {
	key, err := p.decrypter.Decrypt(store.ConsumerKey)
	if err != nil {
		return nil, fmt.Errorf("consumer key: %w", err)
	}
	secret, err := p.decrypter.Decrypt(store.ConsumerSecret)
	if err != nil {
		return nil, fmt.Errorf("consumer secret: %w", err)
	}

	return NewWooCommerceAdapter(&WooCommerceConfig{
		BaseURL:        store.BaseURL,
		ConsumerKey:    key,
		ConsumerSecret: secret,
		Timeout:        p.timeout,
	}, WithTransport(p.transport))
}
