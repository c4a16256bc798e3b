package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient(Config{})
	require.Error(t, err)
}

func TestIntentStatusSucceeded(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","status":"succeeded"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(Config{BaseURL: srv.URL, APIKey: "sk_test"})
	require.NoError(t, err)

	status, err := client.IntentStatus(context.Background(), "pi_123")
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, status)
	require.Equal(t, "Bearer sk_test", gotAuth)
}

func TestIntentStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.IntentStatus(context.Background(), "pi_missing")
	require.ErrorIs(t, err, ErrIntentNotFound)
}

func TestIntentStatusServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.IntentStatus(context.Background(), "pi_123")
	require.ErrorContains(t, err, "unexpected status")
}

func TestIntentStatusRequiresID(t *testing.T) {
	client, err := NewHTTPClient(Config{BaseURL: "http://processor.local"})
	require.NoError(t, err)

	_, err = client.IntentStatus(context.Background(), " ")
	require.Error(t, err)
}
