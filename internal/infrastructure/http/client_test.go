package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	httpapi "github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/http"
)

func TestClient_SendPostEncodesForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/payment/add", r.URL.Path)
		assert.Equal(t, "shop.example", r.PostForm.Get("domain"))
		assert.Equal(t, "DK1", r.PostForm.Get("domain_key"))
		_, _ = w.Write([]byte(`{"payment_id":5}`))
	}))
	defer srv.Close()

	client := httpapi.NewClient(httpapi.ClientConfig{Timeout: time.Second})

	body, err := client.SendPost(context.Background(), srv.URL+"/v2/payment/add", map[string]string{
		"domain":     "shop.example",
		"domain_key": "DK1",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"payment_id":5}`, string(body))
}

func TestClient_SendGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := httpapi.NewClient(httpapi.ClientConfig{Timeout: time.Second})

	body, err := client.SendGet(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := httpapi.NewClient(httpapi.ClientConfig{
		Timeout:      time.Second,
		RetryCount:   2,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 2 * time.Millisecond,
	})

	_, err := client.SendGet(context.Background(), srv.URL)
	var connErr *contracts.ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := httpapi.NewClient(httpapi.ClientConfig{Timeout: 200 * time.Millisecond})

	_, err := client.SendGet(context.Background(), url)
	var connErr *contracts.ConnectivityError
	assert.ErrorAs(t, err, &connErr)
}
