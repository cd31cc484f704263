package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/challengeclub/competition-server-go/internal/config"
)

func TestBodyLimit(t *testing.T) {
	t.Run("passes a normal payload through", func(t *testing.T) {
		var got string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			got = string(body)
			w.WriteHeader(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"text":"/help"}`))
		rec := httptest.NewRecorder()

		BodyLimit(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"text":"/help"}`, got)
	})

	t.Run("refuses an oversized declared length up front", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run")
		})
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("x"))
		req.ContentLength = config.MaxWebhookBodyBytes + 1
		rec := httptest.NewRecorder()

		BodyLimit(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "too large")
	})

	t.Run("cuts off an undeclared oversized body mid-read", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := io.ReadAll(r.Body)
			require.Error(t, err)
			w.WriteHeader(http.StatusBadRequest)
		})
		huge := strings.NewReader(strings.Repeat("a", int(config.MaxWebhookBodyBytes)+1))
		req := httptest.NewRequest(http.MethodPost, "/webhook", huge)
		req.ContentLength = -1
		rec := httptest.NewRecorder()

		BodyLimit(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
