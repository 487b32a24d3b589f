package reconciliation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Route describes one webhook entry point.
type Route struct {
	Name string
	// MatchOrders makes instant payments look up one-off orders before subscriptions.
	MatchOrders bool
	// ActivationTag is the audit event type for an instant-payment subscription activation.
	ActivationTag string
	// MaterializeOnActivation makes an instant-payment activation also create
	// the paid cycle's delivery rows. Otherwise only next_delivery_date is set
	// and the first confirmed charge materializes the cycle.
	MaterializeOnActivation bool
	// FailureTag is the audit event type written when a delivery is rejected.
	FailureTag string
	// Classify turns a raw body into events in processing order. Nil for
	// routes whose events are decoded by the caller.
	Classify func(body []byte) ([]Event, error)
}

var (
	InstantRoute = Route{
		Name:          "pix",
		MatchOrders:   true,
		ActivationTag: "pix_sub_ativada",
		FailureTag:    "pix_webhook_erro",
		Classify:      ClassifyInstant,
	}
	AutomaticRoute = Route{
		Name:                    "pix-automatic",
		ActivationTag:           "pix_sub_ativada_aguardando_rec",
		MaterializeOnActivation: true,
		FailureTag:              "pix_auto_webhook_erro",
		Classify:                ClassifyAutomatic,
	}
	CardRoute = Route{
		Name:        "stripe",
		MatchOrders: true,
		FailureTag:  "stripe_webhook_erro",
	}
)

// oneOrMany decodes a JSON array, a single object, or null.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*o = nil
		return nil
	case trimmed[0] == '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*o = items
		return nil
	default:
		var item T
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return err
		}
		*o = oneOrMany[T]{item}
		return nil
	}
}

type pixEntry struct {
	TxID       string          `json:"txid"`
	Valor      json.RawMessage `json:"valor"`
	EndToEndID string          `json:"endToEndId"`
}

// amount reads valor as a JSON number or numeric string. Anything else is
// left invalid; the value is informational and must not reject the batch.
func (p pixEntry) amount() decimal.NullDecimal {
	raw := bytes.TrimSpace(p.Valor)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.NullDecimal{}
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

type recEntry struct {
	IDRec  string `json:"idRec"`
	Status string `json:"status"`
}

type cobrEntry struct {
	IDRec  string `json:"idRec"`
	TxID   string `json:"txid"`
	Status string `json:"status"`
}

type webhookBody struct {
	Pix  oneOrMany[pixEntry]  `json:"pix"`
	Rec  oneOrMany[recEntry]  `json:"rec"`
	Cobr oneOrMany[cobrEntry] `json:"cobr"`
}

func decodeBody(body []byte) (webhookBody, error) {
	var parsed webhookBody
	if len(bytes.TrimSpace(body)) == 0 {
		return parsed, fmt.Errorf("empty webhook body")
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return parsed, fmt.Errorf("invalid webhook body: %w", err)
	}
	return parsed, nil
}

// ClassifyInstant reads {pix: [...]}. Entries without txid are dropped.
func ClassifyInstant(body []byte) ([]Event, error) {
	parsed, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	return instantEvents(parsed.Pix), nil
}

// ClassifyAutomatic reads rec, cobr and pix entries, in that order. Entries
// without their identifier (idRec, or txid for pix) are dropped.
func ClassifyAutomatic(body []byte) ([]Event, error) {
	parsed, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(parsed.Rec)+len(parsed.Cobr)+len(parsed.Pix))
	for _, rec := range parsed.Rec {
		id := strings.TrimSpace(rec.IDRec)
		if id == "" {
			continue
		}
		events = append(events, RecurrenceUpdate{RecurrenceID: id, Status: normalizeStatus(rec.Status)})
	}
	for _, cobr := range parsed.Cobr {
		id := strings.TrimSpace(cobr.IDRec)
		if id == "" {
			continue
		}
		events = append(events, ChargeUpdate{
			RecurrenceID: id,
			TxID:         strings.TrimSpace(cobr.TxID),
			Status:       normalizeStatus(cobr.Status),
		})
	}
	return append(events, instantEvents(parsed.Pix)...), nil
}

func instantEvents(entries []pixEntry) []Event {
	events := make([]Event, 0, len(entries))
	for _, pix := range entries {
		txid := strings.TrimSpace(pix.TxID)
		if txid == "" {
			continue
		}
		events = append(events, InstantPayment{
			TxID:       txid,
			EndToEndID: strings.TrimSpace(pix.EndToEndID),
			Amount:     pix.amount(),
		})
	}
	return events
}

func normalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}
