package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/johsantss21/Thays-admin/pkg/logger"
)

func panicking() http.Handler {
	return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	resp := httptest.NewRecorder()
	Recoverer(logger.Nop())(panicking()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), `"code":"INTERNAL_ERROR"`)
}

func TestWebhookRecovererKeepsProviderContract(t *testing.T) {
	resp := httptest.NewRecorder()
	WebhookRecoverer(logger.Nop())(panicking()).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"error"`)
}

func TestRequestIDEchoesOrMints(t *testing.T) {
	handler := RequestID(logger.Nop())(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, "abc-123", resp.Header().Get("X-Request-Id"))

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, resp.Header().Get("X-Request-Id"), 36)
}
