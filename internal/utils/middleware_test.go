package utils

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-reservations/internal/logger"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Output: &buf, Level: "DEBUG"})
	require.NoError(t, err)

	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Contains(t, buf.String(), "GET /api/events")
	assert.Contains(t, buf.String(), "418")
}
