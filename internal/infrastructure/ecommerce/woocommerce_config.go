package ecommerce

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// WooCommerceAPIPath is the REST v3 prefix appended to a store's base URL
	WooCommerceAPIPath = "/wp-json/wc/v3"
	// DefaultWooCommerceTimeout bounds every outbound request
	DefaultWooCommerceTimeout = 30 * time.Second
	// DefaultUserAgent identifies the sync engine to store operators
	DefaultUserAgent = "woowms-sync/1.0"
)

// Errors for WooCommerce configuration
var (
	ErrWooConfigMissingBaseURL = errors.New("woocommerce: base url is required")
	ErrWooConfigInvalidBaseURL = errors.New("woocommerce: base url must be an absolute http(s) url")
	ErrWooConfigMissingKey     = errors.New("woocommerce: consumer key is required")
	ErrWooConfigMissingSecret  = errors.New("woocommerce: consumer secret is required")
)

var configValidator = validator.New()

// WooCommerceConfig holds the connection settings for one store
type WooCommerceConfig struct {
	BaseURL        string `validate:"required,url,startswith=http"`
	ConsumerKey    string `validate:"required"`
	ConsumerSecret string `validate:"required"`
	Timeout        time.Duration
	UserAgent      string
}

// Validate checks required fields and applies defaults
func (c *WooCommerceConfig) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "BaseURL":
				if verrs[0].Tag() == "required" {
					return ErrWooConfigMissingBaseURL
				}
				return ErrWooConfigInvalidBaseURL
			case "ConsumerKey":
				return ErrWooConfigMissingKey
			case "ConsumerSecret":
				return ErrWooConfigMissingSecret
			}
		}
		return fmt.Errorf("woocommerce: invalid config: %w", err)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultWooCommerceTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return nil
}

// APIBaseURL returns the REST root for the store
func (c *WooCommerceConfig) APIBaseURL() string {
	return c.BaseURL + WooCommerceAPIPath
}
