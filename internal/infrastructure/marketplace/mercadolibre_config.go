package marketplace

import (
	"errors"
	"strings"
)

// MercadoLibreConfig holds configuration for the MercadoLibre API integration
type MercadoLibreConfig struct {
	// AccessToken is the OAuth bearer token for the seller account
	AccessToken string
	// SiteID is the marketplace site, e.g. "MLM" for Mexico
	SiteID string
	// APIBaseURL is the API root, overridable for testing
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// MercadoLibreAPIURL is the production API endpoint
const MercadoLibreAPIURL = "https://api.mercadolibre.com"

// Errors for MercadoLibre configuration
var (
	ErrMeliConfigMissingToken = errors.New("mercadolibre: access token is required")
)

// NewMercadoLibreConfig creates a new MercadoLibre configuration with defaults
func NewMercadoLibreConfig(accessToken, siteID string) *MercadoLibreConfig {
	return &MercadoLibreConfig{
		AccessToken:    accessToken,
		SiteID:         siteID,
		APIBaseURL:     MercadoLibreAPIURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the MercadoLibre configuration
func (c *MercadoLibreConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrMeliConfigMissingToken
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = MercadoLibreAPIURL
	}
	if c.SiteID == "" {
		c.SiteID = "MLM"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// BaseURL returns the API root without a trailing slash
func (c *MercadoLibreConfig) BaseURL() string {
	return strings.TrimSuffix(c.APIBaseURL, "/")
}
