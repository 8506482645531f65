package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPublish(t *testing.T) {
	local := &Local{BaseURL: "https://marketing.example.com/"}
	url, err := local.Publish(context.Background(), "thread-1", "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "https://marketing.example.com/pages/thread-1", url)
}

func TestLocalPublishRequiresBaseURL(t *testing.T) {
	local := &Local{}
	_, err := local.Publish(context.Background(), "thread-1", "<html></html>")
	assert.Error(t, err)
}

func TestV0Publish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chats", r.URL.Path)
		assert.Equal(t, "Bearer v0-key", r.Header.Get("Authorization"))

		var req v0ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Message, "<!DOCTYPE html>")

		w.Write([]byte(`{"id": "chat-1", "webUrl": "https://v0.dev/chat/1", "demo": "https://demo.v0.dev/1"}`))
	}))
	defer srv.Close()

	client := NewV0Client("v0-key")
	client.BaseURL = srv.URL

	url, err := client.Publish(context.Background(), "thread-1", "<!DOCTYPE html><html></html>")
	require.NoError(t, err)
	assert.Equal(t, "https://demo.v0.dev/1", url)
}

func TestV0PublishFallsBackToWebURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "chat-1", "webUrl": "https://v0.dev/chat/1"}`))
	}))
	defer srv.Close()

	client := NewV0Client("v0-key")
	client.BaseURL = srv.URL

	url, err := client.Publish(context.Background(), "thread-1", "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "https://v0.dev/chat/1", url)
}

func TestV0PublishAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewV0Client("v0-key")
	client.BaseURL = srv.URL

	_, err := client.Publish(context.Background(), "thread-1", "<html></html>")
	assert.ErrorContains(t, err, "429")
}

func TestV0PublishRequiresAPIKey(t *testing.T) {
	client := NewV0Client("")
	_, err := client.Publish(context.Background(), "thread-1", "<html></html>")
	assert.Error(t, err)
}
