package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/shared"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

// ShopifyAdapter pushes reconciled entity state to a Shopify store and reports
// the store's view of entities back to the conflict detector. The sync version
// is carried in the product's tag list, so a lookup can recover it without any
// store-side schema.
type ShopifyAdapter struct {
	config      *ShopifyConfig
	httpClient  *http.Client
	idempotency shared.IdempotencyStore

	// tenantConfigs stores per-tenant store credentials
	tenantConfigs map[uuid.UUID]*ShopifyConfig
	mu            sync.RWMutex
}

// NewShopifyAdapter creates a new Shopify adapter with the given default
// configuration. The idempotency store may be nil, in which case retried
// propagations are re-sent.
func NewShopifyAdapter(config *ShopifyConfig, idempotency shared.IdempotencyStore) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		idempotency:   idempotency,
		tenantConfigs: make(map[uuid.UUID]*ShopifyConfig),
	}, nil
}

// SetTenantConfig sets the store credentials for a specific tenant
func (a *ShopifyAdapter) SetTenantConfig(tenantID uuid.UUID, config *ShopifyConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tenantConfigs[tenantID] = config
	return nil
}

// getTenantConfig retrieves the configuration for a tenant
func (a *ShopifyAdapter) getTenantConfig(tenantID uuid.UUID) (*ShopifyConfig, error) {
	a.mu.RLock()
	config, ok := a.tenantConfigs[tenantID]
	a.mu.RUnlock()
	if ok {
		return config, nil
	}
	if a.config != nil {
		return a.config, nil
	}
	return nil, ErrNotConfigured
}

// Name returns the source this adapter serves
func (a *ShopifyAdapter) Name() syncengine.Source {
	return syncengine.SourceShopify
}

// Propagate applies the event's after state to the Shopify store
func (a *ShopifyAdapter) Propagate(ctx context.Context, event *syncengine.SyncEvent) error {
	config, err := a.getTenantConfig(event.TenantID)
	if err != nil {
		return err
	}

	done, err := a.alreadyPropagated(ctx, event)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	switch event.Type {
	case syncengine.EventTypeEntityDelete:
		err = a.deleteProduct(ctx, config, event.EntityID)
	case syncengine.EventTypeEntityCreate:
		err = a.createProduct(ctx, config, event)
	default:
		err = a.updateProduct(ctx, config, event)
	}
	if err != nil {
		return err
	}

	return a.markPropagated(ctx, event)
}

// CurrentState returns the store's view of the entity, or nil when the store
// does not know it
func (a *ShopifyAdapter) CurrentState(ctx context.Context, tenantID uuid.UUID, entityID, entityType string) (*syncengine.EntityState, error) {
	config, err := a.getTenantConfig(tenantID)
	if err != nil {
		return nil, err
	}

	respBody, status, err := a.doRequest(ctx, config, http.MethodGet, a.productURL(config, entityID), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrRequestFailed, status)
	}

	var envelope shopifyProductEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if envelope.Product == nil {
		return nil, nil
	}

	value := syncengine.Payload{
		"title":  envelope.Product.Title,
		"status": envelope.Product.Status,
	}
	if len(envelope.Product.Variants) > 0 {
		value["price"] = envelope.Product.Variants[0].Price
		value["quantity"] = envelope.Product.Variants[0].InventoryQuantity
	}

	return &syncengine.EntityState{
		Source:  syncengine.SourceShopify,
		Version: parseVersionTag(envelope.Product.Tags),
		Value:   value,
	}, nil
}

func (a *ShopifyAdapter) createProduct(ctx context.Context, config *ShopifyConfig, event *syncengine.SyncEvent) error {
	body := shopifyProductEnvelope{Product: productFromPayload(event)}
	respBody, status, err := a.doRequest(ctx, config, http.MethodPost, config.BaseURL()+"/products.json", body)
	if err != nil {
		return err
	}
	return checkShopifyStatus(status, respBody)
}

func (a *ShopifyAdapter) updateProduct(ctx context.Context, config *ShopifyConfig, event *syncengine.SyncEvent) error {
	body := shopifyProductEnvelope{Product: productFromPayload(event)}
	respBody, status, err := a.doRequest(ctx, config, http.MethodPut, a.productURL(config, event.EntityID), body)
	if err != nil {
		return err
	}
	return checkShopifyStatus(status, respBody)
}

func (a *ShopifyAdapter) deleteProduct(ctx context.Context, config *ShopifyConfig, entityID string) error {
	respBody, status, err := a.doRequest(ctx, config, http.MethodDelete, a.productURL(config, entityID), nil)
	if err != nil {
		return err
	}
	// Deleting an already-deleted product is a success for propagation
	if status == http.StatusNotFound {
		return nil
	}
	return checkShopifyStatus(status, respBody)
}

func (a *ShopifyAdapter) productURL(config *ShopifyConfig, entityID string) string {
	return config.BaseURL() + "/products/" + url.PathEscape(entityID) + ".json"
}

// productFromPayload maps the reconciled payload onto the product resource.
// The sync version rides along in the tag list.
func productFromPayload(event *syncengine.SyncEvent) *shopifyProduct {
	product := &shopifyProduct{
		Tags: encodeVersionTag(event.Version),
	}
	if title, ok := event.After["title"].(string); ok {
		product.Title = title
	}

	variant := shopifyVariant{SKU: event.EntityID}
	hasVariant := false
	if price, ok := formatPrice(event.After["price"]); ok {
		variant.Price = price
		hasVariant = true
	}
	if quantity, ok := toQuantity(event.After["quantity"]); ok {
		variant.InventoryQuantity = quantity
		hasVariant = true
	}
	if hasVariant {
		product.Variants = []shopifyVariant{variant}
	}
	return product
}

func (a *ShopifyAdapter) alreadyPropagated(ctx context.Context, event *syncengine.SyncEvent) (bool, error) {
	if a.idempotency == nil {
		return false, nil
	}
	return a.idempotency.IsProcessed(ctx, propagationKey(a.Name(), event))
}

func (a *ShopifyAdapter) markPropagated(ctx context.Context, event *syncengine.SyncEvent) error {
	if a.idempotency == nil {
		return nil
	}
	_, err := a.idempotency.MarkProcessed(ctx, propagationKey(a.Name(), event), propagationTTL)
	return err
}

// propagationKey identifies one logical propagation of one event to one target
func propagationKey(target syncengine.Source, event *syncengine.SyncEvent) string {
	return string(target) + ":" + event.ID.String()
}

// doRequest performs an HTTP request against the Admin API
func (a *ShopifyAdapter) doRequest(ctx context.Context, config *ShopifyConfig, method, requestURL string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("shopify: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", config.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMarketplaceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("shopify: failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

func checkShopifyStatus(status int, respBody []byte) error {
	if status < 400 {
		return nil
	}
	var errResp shopifyErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Errors != nil {
		return fmt.Errorf("%w: HTTP %d: %v", ErrRequestFailed, status, errResp.Errors)
	}
	return fmt.Errorf("%w: HTTP %d", ErrRequestFailed, status)
}

// Ensure ShopifyAdapter serves both ports
var (
	_ syncengine.TargetAdapter = (*ShopifyAdapter)(nil)
	_ syncengine.StateLookup   = (*ShopifyAdapter)(nil)
)
