package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the store (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxVariationPages guards against a store reporting an unbounded page count
const maxVariationPages = 50

// totalPagesHeader carries the page count of a collection response
const totalPagesHeader = "X-WP-TotalPages"

// ErrWooInvalidExternalID indicates a non-numeric product id on a stock push
var ErrWooInvalidExternalID = errors.New("woocommerce: invalid external id")

// AdapterOption configures a WooCommerceAdapter
type AdapterOption func(*WooCommerceAdapter)

// WithTransport sets the HTTP transport, e.g. an instrumented one
func WithTransport(rt http.RoundTripper) AdapterOption {
	return func(a *WooCommerceAdapter) {
		if rt != nil {
			a.httpClient.Transport = rt
		}
	}
}

// WooCommerceAdapter implements integration.CommerceClient against the
// WooCommerce REST API v3 of a single store
type WooCommerceAdapter struct {
	config     *WooCommerceConfig
	httpClient *http.Client
}

var _ integration.CommerceClient = (*WooCommerceAdapter)(nil)

// NewWooCommerceAdapter creates an adapter for one store
func NewWooCommerceAdapter(config *WooCommerceConfig, opts ...AdapterOption) (*WooCommerceAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &WooCommerceAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// ListOrders fetches one page of orders in ascending creation order.
// The lower bound is sent as modified_after (WooCommerce 5.8+).
func (a *WooCommerceAdapter) ListOrders(ctx context.Context, q integration.OrderQuery) (*integration.Page[integration.RemoteOrder], error) {
	q.ApplyDefaults()

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("order", "asc")
	params.Set("orderby", "date")
	if q.ModifiedAfter != nil {
		params.Set("modified_after", q.ModifiedAfter.UTC().Format(time.RFC3339))
		params.Set("dates_are_gmt", "true")
	}
	if len(q.Statuses) > 0 {
		params.Set("status", strings.Join(q.Statuses, ","))
	}

	var orders []WooOrder
	totalPages, err := a.getJSON(ctx, "orders", params, &orders)
	if err != nil {
		return nil, err
	}

	page := &integration.Page[integration.RemoteOrder]{
		Items:      make([]integration.RemoteOrder, 0, len(orders)),
		TotalPages: totalPages,
		Fetched:    len(orders),
	}
	for i := range orders {
		page.Items = append(page.Items, orders[i].toRemoteOrder())
	}
	return page, nil
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// ListProducts fetches one page of the catalog. Variable products are
// replaced by their variations; the parent itself is not returned.
func (a *WooCommerceAdapter) ListProducts(ctx context.Context, page, perPage int) (*integration.Page[integration.RemoteProduct], error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > integration.DefaultPageSize {
		perPage = integration.DefaultPageSize
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var products []WooProduct
	totalPages, err := a.getJSON(ctx, "products", params, &products)
	if err != nil {
		return nil, err
	}

	result := &integration.Page[integration.RemoteProduct]{
		Items:      make([]integration.RemoteProduct, 0, len(products)),
		TotalPages: totalPages,
		Fetched:    len(products),
	}
	for i := range products {
		p := &products[i]
		if !p.IsVariable() {
			result.Items = append(result.Items, p.toRemoteProduct(nil))
			continue
		}
		variations, err := a.listVariations(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for j := range variations {
			result.Items = append(result.Items, variations[j].toRemoteProduct(p))
		}
	}
	return result, nil
}

// listVariations fetches every variation of a variable product
func (a *WooCommerceAdapter) listVariations(ctx context.Context, parentID int64) ([]WooProduct, error) {
	path := "products/" + formatID(parentID) + "/variations"
	var all []WooProduct
	for page := 1; page <= maxVariationPages; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(integration.DefaultPageSize))

		var batch []WooProduct
		totalPages, err := a.getJSON(ctx, path, params, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) == 0 || (totalPages > 0 && page >= totalPages) || (totalPages == 0 && len(batch) < integration.DefaultPageSize) {
			break
		}
	}
	return all, nil
}

// UpdateStock sets the stock quantity of a product or variation and turns on
// stock management for it
func (a *WooCommerceAdapter) UpdateStock(ctx context.Context, update integration.StockUpdate) error {
	if _, err := strconv.ParseInt(update.ExternalID, 10, 64); err != nil {
		return fmt.Errorf("%w: %q", ErrWooInvalidExternalID, update.ExternalID)
	}
	path := "products/" + update.ExternalID
	if update.ExternalParentID != "" {
		if _, err := strconv.ParseInt(update.ExternalParentID, 10, 64); err != nil {
			return fmt.Errorf("%w: %q", ErrWooInvalidExternalID, update.ExternalParentID)
		}
		path = "products/" + update.ExternalParentID + "/variations/" + update.ExternalID
	}

	quantity := update.Quantity
	if quantity < 0 {
		quantity = 0
	}
	body, err := json.Marshal(WooStockUpdate{ManageStock: true, StockQuantity: quantity})
	if err != nil {
		return fmt.Errorf("woocommerce: failed to encode stock update: %w", err)
	}

	_, _, err = a.doRequest(ctx, http.MethodPut, path, nil, body)
	return err
}

// GetCurrency returns the store's configured currency code
func (a *WooCommerceAdapter) GetCurrency(ctx context.Context) (string, error) {
	var setting WooSetting
	if _, err := a.getJSON(ctx, "settings/general/woocommerce_currency", nil, &setting); err != nil {
		return "", err
	}
	code := strings.ToUpper(strings.TrimSpace(setting.Value))
	if code == "" {
		return "", fmt.Errorf("%w: empty currency setting", integration.ErrPlatformInvalidResponse)
	}
	return code, nil
}

// ---------------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------------

// getJSON performs a GET and decodes the body into out. It returns the
// reported total page count, zero when the header is absent.
func (a *WooCommerceAdapter) getJSON(ctx context.Context, path string, params url.Values, out any) (int, error) {
	body, header, err := a.doRequest(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return 0, fmt.Errorf("%w: failed to parse response: %v", integration.ErrPlatformInvalidResponse, err)
	}
	totalPages, _ := strconv.Atoi(header.Get(totalPagesHeader))
	return totalPages, nil
}

func (a *WooCommerceAdapter) doRequest(ctx context.Context, method, path string, params url.Values, payload []byte) ([]byte, http.Header, error) {
	endpoint := a.config.APIBaseURL() + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("woocommerce: failed to create request: %w", err)
	}
	req.SetBasicAuth(a.config.ConsumerKey, a.config.ConsumerSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.config.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, ctxErr)
		}
		return nil, nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrPlatformUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return nil, nil, classifyStatus(resp.StatusCode, body)
	}
	return body, resp.Header, nil
}

// classifyStatus maps an HTTP error status to an integration sentinel
func classifyStatus(status int, body []byte) error {
	detail := fmt.Sprintf("HTTP %d", status)
	var apiErr WooErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
		detail = fmt.Sprintf("HTTP %d %s: %s", status, apiErr.Code, apiErr.Message)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", integration.ErrPlatformAuthFailed, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", integration.ErrPlatformRateLimited, detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", integration.ErrPlatformNotFound, detail)
	case status >= 500:
		return fmt.Errorf("%w: %s", integration.ErrPlatformUnavailable, detail)
	default:
		return fmt.Errorf("%w: %s", integration.ErrPlatformRequestFailed, detail)
	}
}

// redactURLError drops the request URL from transport errors
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
