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

// MercadoLibreAdapter pushes reconciled entity state to MercadoLibre listings
// and reports the marketplace's view back to the conflict detector. The sync
// version is stored in the item's seller_custom_field.
type MercadoLibreAdapter struct {
	config      *MercadoLibreConfig
	httpClient  *http.Client
	idempotency shared.IdempotencyStore

	// tenantConfigs stores per-tenant seller credentials
	tenantConfigs map[uuid.UUID]*MercadoLibreConfig
	mu            sync.RWMutex
}

// NewMercadoLibreAdapter creates a new MercadoLibre adapter with the given
// default configuration. The idempotency store may be nil.
func NewMercadoLibreAdapter(config *MercadoLibreConfig, idempotency shared.IdempotencyStore) (*MercadoLibreAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &MercadoLibreAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		idempotency:   idempotency,
		tenantConfigs: make(map[uuid.UUID]*MercadoLibreConfig),
	}, nil
}

// SetTenantConfig sets the seller credentials for a specific tenant
func (a *MercadoLibreAdapter) SetTenantConfig(tenantID uuid.UUID, config *MercadoLibreConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tenantConfigs[tenantID] = config
	return nil
}

// getTenantConfig retrieves the configuration for a tenant
func (a *MercadoLibreAdapter) getTenantConfig(tenantID uuid.UUID) (*MercadoLibreConfig, error) {
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
func (a *MercadoLibreAdapter) Name() syncengine.Source {
	return syncengine.SourceMercadoLibre
}

// Propagate applies the event's after state to the MercadoLibre listing
func (a *MercadoLibreAdapter) Propagate(ctx context.Context, event *syncengine.SyncEvent) error {
	config, err := a.getTenantConfig(event.TenantID)
	if err != nil {
		return err
	}

	if a.idempotency != nil {
		done, err := a.idempotency.IsProcessed(ctx, propagationKey(a.Name(), event))
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	switch event.Type {
	case syncengine.EventTypeEntityDelete:
		// Listings are closed, not deleted
		err = a.putItem(ctx, config, event.EntityID, &meliItem{Status: "closed"})
	case syncengine.EventTypeEntityCreate:
		err = a.createItem(ctx, config, event)
	default:
		err = a.putItem(ctx, config, event.EntityID, itemFromPayload(event, config))
	}
	if err != nil {
		return err
	}

	if a.idempotency != nil {
		if _, err := a.idempotency.MarkProcessed(ctx, propagationKey(a.Name(), event), propagationTTL); err != nil {
			return err
		}
	}
	return nil
}

// CurrentState returns the marketplace's view of the entity, or nil when the
// listing does not exist
func (a *MercadoLibreAdapter) CurrentState(ctx context.Context, tenantID uuid.UUID, entityID, entityType string) (*syncengine.EntityState, error) {
	config, err := a.getTenantConfig(tenantID)
	if err != nil {
		return nil, err
	}

	respBody, status, err := a.doRequest(ctx, config, http.MethodGet, a.itemURL(config, entityID), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 400 {
		return nil, decodeMeliError(status, respBody)
	}

	var item meliItem
	if err := json.Unmarshal(respBody, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	value := syncengine.Payload{
		"title":  item.Title,
		"status": item.Status,
	}
	if item.Price != nil {
		value["price"] = *item.Price
	}
	if item.AvailableQuantity != nil {
		value["quantity"] = *item.AvailableQuantity
	}

	return &syncengine.EntityState{
		Source:  syncengine.SourceMercadoLibre,
		Version: parseVersionTag(item.SellerCustomField),
		Value:   value,
	}, nil
}

func (a *MercadoLibreAdapter) createItem(ctx context.Context, config *MercadoLibreConfig, event *syncengine.SyncEvent) error {
	item := itemFromPayload(event, config)
	item.SiteID = config.SiteID
	respBody, status, err := a.doRequest(ctx, config, http.MethodPost, config.BaseURL()+"/items", item)
	if err != nil {
		return err
	}
	if status >= 400 {
		return decodeMeliError(status, respBody)
	}
	return nil
}

func (a *MercadoLibreAdapter) putItem(ctx context.Context, config *MercadoLibreConfig, entityID string, item *meliItem) error {
	respBody, status, err := a.doRequest(ctx, config, http.MethodPut, a.itemURL(config, entityID), item)
	if err != nil {
		return err
	}
	if status >= 400 {
		return decodeMeliError(status, respBody)
	}
	return nil
}

func (a *MercadoLibreAdapter) itemURL(config *MercadoLibreConfig, entityID string) string {
	return config.BaseURL() + "/items/" + url.PathEscape(entityID)
}

// itemFromPayload maps the reconciled payload onto the item resource
func itemFromPayload(event *syncengine.SyncEvent, config *MercadoLibreConfig) *meliItem {
	item := &meliItem{
		SellerCustomField: encodeVersionTag(event.Version),
	}
	if title, ok := event.After["title"].(string); ok {
		item.Title = title
	}
	if d, ok := toDecimalValue(event.After["price"]); ok {
		price := d.InexactFloat64()
		item.Price = &price
	}
	if quantity, ok := toQuantity(event.After["quantity"]); ok {
		item.AvailableQuantity = &quantity
	}
	return item
}

// doRequest performs an HTTP request against the MercadoLibre API
func (a *MercadoLibreAdapter) doRequest(ctx context.Context, config *MercadoLibreConfig, method, requestURL string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("mercadolibre: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("mercadolibre: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+config.AccessToken)
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
		return nil, 0, fmt.Errorf("mercadolibre: failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

func decodeMeliError(status int, respBody []byte) error {
	var errResp meliErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, status, errResp.Message)
	}
	return fmt.Errorf("%w: HTTP %d", ErrRequestFailed, status)
}

// Ensure MercadoLibreAdapter serves both ports
var (
	_ syncengine.TargetAdapter = (*MercadoLibreAdapter)(nil)
	_ syncengine.StateLookup   = (*MercadoLibreAdapter)(nil)
)
