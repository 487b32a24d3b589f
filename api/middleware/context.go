package middleware

import "context"

type contextKey string

const (
	ctxTokenID   contextKey = "api_token_id"
	ctxTokenName contextKey = "api_token_name"
)

// TokenIDFromContext returns the id of the API token that authenticated the request.
func TokenIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTokenID).(string); ok {
		return v
	}
	return ""
}

func TokenNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTokenName).(string); ok {
		return v
	}
	return ""
}
