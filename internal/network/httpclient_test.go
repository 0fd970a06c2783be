// File: internal/network/httpclient_test.go
package network

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("should apply the configured request timeout", func(t *testing.T) {
		t.Parallel()
		client := NewClient(&ClientConfig{RequestTimeout: 5 * time.Second})
		assert.Equal(t, 5*time.Second, client.Timeout)
	})

	t.Run("should fall back to defaults for a nil config", func(t *testing.T) {
		t.Parallel()
		client := NewClient(nil)
		assert.Equal(t, DefaultRequestTimeout, client.Timeout)
	})

	t.Run("should perform plain requests", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		client := NewClient(NewDefaultClientConfig())
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}
