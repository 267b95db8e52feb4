package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPostNewAndThread(t *testing.T) {
	var got []postMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		var req postMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		_ = json.NewEncoder(w).Encode(postMessageResponse{OK: true, TS: "1700000000.000100", Channel: req.Channel})
	}))
	defer srv.Close()

	c := NewClient("xoxb-test", srv.URL)
	ts, err := c.PostNew(context.Background(), "C1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000100", ts)

	_, err = c.PostToThread(context.Background(), "C1", ts, "reply")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Empty(t, got[0].ThreadTS)
	assert.Equal(t, ts, got[1].ThreadTS)
	assert.Equal(t, "reply", got[1].Text)
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	_, err := NewClient("xoxb-test", srv.URL).PostNew(context.Background(), "C404", "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "channel_not_found", apiErr.Code)
}

func TestClientHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient("xoxb-test", srv.URL).PostNew(context.Background(), "C1", "x")
	assert.ErrorContains(t, err, "429")
}

func TestClientRequiresToken(t *testing.T) {
	_, err := NewClient("", "").PostNew(context.Background(), "C1", "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientPostToThreadRequiresHandle(t *testing.T) {
	_, err := NewClient("xoxb", "").PostToThread(context.Background(), "C1", "", "x")
	assert.Error(t, err)
}

func TestClientAuthTest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth.test", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"team":"acme","user":"agent","user_id":"U1"}`))
	}))
	defer srv.Close()

	info, err := NewClient("xoxb-test", srv.URL+"/").AuthTest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme", info.Team)
}
