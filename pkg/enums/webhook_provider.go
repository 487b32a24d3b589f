package enums

import "fmt"

// WebhookProvider names the payment provider that delivered an event.
type WebhookProvider string

const (
	ProviderEfi    WebhookProvider = "efi"
	ProviderStripe WebhookProvider = "stripe"
)

var validWebhookProviders = []WebhookProvider{
	ProviderEfi,
	ProviderStripe,
}

// String implements fmt.Stringer.
func (w WebhookProvider) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WebhookProvider.
func (w WebhookProvider) IsValid() bool {
	for _, candidate := range validWebhookProviders {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookProvider converts raw input into a WebhookProvider.
func ParseWebhookProvider(value string) (WebhookProvider, error) {
	for _, candidate := range validWebhookProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook provider %q", value)
}
