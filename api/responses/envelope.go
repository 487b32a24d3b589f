package responses

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookAck is the body payment providers expect on success.
type WebhookAck struct {
	Received bool `json:"received"`
}

// WebhookFailure is the body returned to providers so they redeliver.
type WebhookFailure struct {
	Error string `json:"error"`
}
