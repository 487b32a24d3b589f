// Package stripe verifies Stripe webhook deliveries and decodes the
// payment_intent events the card route reconciles.
package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/johsantss21/Thays-admin/pkg/config"
)

const (
	testEnv = "test"
	liveEnv = "live"

	paymentIntentPrefix = "payment_intent."
)

var (
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// IntentEvent is a payment_intent.* notification reduced to what
// reconciliation needs.
type IntentEvent struct {
	EventID         string
	Type            string
	PaymentIntentID string
	FailureMessage  string
}

// Verifier checks Stripe-Signature headers against the endpoint secret.
type Verifier struct {
	secret      string
	environment string
	tolerance   time.Duration
}

func NewVerifier(cfg config.StripeConfig) (*Verifier, error) {
	env, err := normalizeEnv(cfg.Env)
	if err != nil {
		return nil, err
	}
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, errSecretRequired
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		if err := validateAPIKey(env, key); err != nil {
			return nil, err
		}
	}
	return &Verifier{secret: secret, environment: env, tolerance: webhook.DefaultTolerance}, nil
}

func (v *Verifier) Environment() string {
	return v.environment
}

// Verify authenticates the payload. Events signed for another API version
// are still accepted; only the payment_intent object is read from them.
func (v *Verifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return stripe.Event{}, errors.New("stripe signature missing")
	}
	return webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
}

// DecodeIntentEvent extracts the payment intent from a payment_intent.* event.
// ok is false for every other event type.
func DecodeIntentEvent(evt stripe.Event) (IntentEvent, bool, error) {
	eventType := string(evt.Type)
	if !strings.HasPrefix(eventType, paymentIntentPrefix) {
		return IntentEvent{}, false, nil
	}
	if evt.Data == nil {
		return IntentEvent{}, false, fmt.Errorf("stripe event %s has no data", evt.ID)
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
		return IntentEvent{}, false, fmt.Errorf("decode payment intent: %w", err)
	}

	out := IntentEvent{EventID: evt.ID, Type: eventType, PaymentIntentID: intent.ID}
	switch {
	case intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "":
		out.FailureMessage = intent.LastPaymentError.Msg
	case intent.CancellationReason != "":
		out.FailureMessage = string(intent.CancellationReason)
	}
	return out, true, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	prefix := "sk_" + env
	restricted := "rk_" + env
	if strings.HasPrefix(key, prefix) || strings.HasPrefix(key, restricted) {
		return nil
	}
	return fmt.Errorf("stripe environment %q requires a %s/%s key", env, prefix, restricted)
}
