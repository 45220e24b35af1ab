// Package marketplace provides the target adapters and state lookups for the
// external marketplaces. Each adapter translates reconciled sync payloads into
// the marketplace's own API calls and reports the marketplace's view of entity
// state back to the conflict detector.
package marketplace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// maxResponseSize caps marketplace API responses (10MB)
const maxResponseSize = 10 * 1024 * 1024

// propagationTTL is how long a propagation is remembered for deduplication.
// Retries of the same event within this window are skipped.
const propagationTTL = 24 * time.Hour

// Errors shared by marketplace adapters
var (
	ErrMarketplaceUnavailable = errors.New("marketplace: platform unreachable")
	ErrRequestFailed          = errors.New("marketplace: platform request failed")
	ErrInvalidResponse        = errors.New("marketplace: invalid platform response")
	ErrNotConfigured          = errors.New("marketplace: platform not configured for tenant")
)

// versionTagPrefix marks the sync version an adapter wrote into a
// marketplace-side free-text field. Reading it back is how a lookup reports
// the marketplace's last-seen version.
const versionTagPrefix = "sync-v"

// encodeVersionTag renders a version for storage in a marketplace field
func encodeVersionTag(version int64) string {
	return versionTagPrefix + strconv.FormatInt(version, 10)
}

// parseVersionTag extracts a version from a tag list such as
// "summer, sync-v12, featured". Returns 0 when no tag is present.
func parseVersionTag(tags string) int64 {
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.TrimSpace(tag)
		if !strings.HasPrefix(tag, versionTagPrefix) {
			continue
		}
		if v, err := strconv.ParseInt(tag[len(versionTagPrefix):], 10, 64); err == nil {
			return v
		}
	}
	return 0
}

// formatPrice renders a payload price value as a fixed two-decimal string
func formatPrice(v any) (string, bool) {
	d, ok := toDecimalValue(v)
	if !ok {
		return "", false
	}
	return d.StringFixed(2), true
}

// toQuantity coerces a payload quantity value to an integer
func toQuantity(v any) (int64, bool) {
	d, ok := toDecimalValue(v)
	if !ok {
		return 0, false
	}
	return d.IntPart(), true
}

func toDecimalValue(v any) (decimal.Decimal, bool) {
	switch value := v.(type) {
	case decimal.Decimal:
		return value, true
	case float64:
		return decimal.NewFromFloat(value), true
	case float32:
		return decimal.NewFromFloat32(value), true
	case int:
		return decimal.NewFromInt(int64(value)), true
	case int64:
		return decimal.NewFromInt(value), true
	case string:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case fmt.Stringer:
		d, err := decimal.NewFromString(value.String())
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}
