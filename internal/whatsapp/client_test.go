package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veyra/automarket/internal/workflow"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		PhoneNumberID: "12345",
		AccessToken:   "token-abc",
		GraphVersion:  "v22.0",
	})
	client.BaseURL = srv.URL
	return client
}

func TestUploadImage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v22.0/12345/media", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whatsapp", r.FormValue("messaging_product"))
		assert.Equal(t, "image/png", r.FormValue("type"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "launch.png", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)

		w.Write([]byte(`{"id": "media-777"}`))
	})

	id, err := client.UploadImage(context.Background(), workflow.ImageAsset{
		Data:     []byte("png-bytes"),
		MIMEType: "image/png",
		Filename: "launch.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "media-777", id)
}

func TestUploadImageAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "bad token"}}`, http.StatusUnauthorized)
	})

	_, err := client.UploadImage(context.Background(), workflow.ImageAsset{Data: []byte("x")})
	assert.ErrorContains(t, err, "401")
}

func TestSendImage(t *testing.T) {
	var got map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v22.0/12345/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"messages": [{"id": "wamid.x"}]}`))
	})

	err := client.SendImage(context.Background(), "15551234567", "media-777", "Launch day")
	require.NoError(t, err)

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "15551234567", got["to"])
	assert.Equal(t, "image", got["type"])
	image := got["image"].(map[string]any)
	assert.Equal(t, "media-777", image["id"])
	assert.Equal(t, "Launch day", image["caption"])
}

func TestSendText(t *testing.T) {
	var got map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	})

	err := client.SendText(context.Background(), "15551234567", "Your page is live")
	require.NoError(t, err)

	assert.Equal(t, "text", got["type"])
	text := got["text"].(map[string]any)
	assert.Equal(t, "Your page is live", text["body"])
}

func TestVerifyChallenge(t *testing.T) {
	query := url.Values{
		"hub.mode":         {"subscribe"},
		"hub.verify_token": {"secret-token"},
		"hub.challenge":    {"challenge-42"},
	}

	challenge, ok := VerifyChallenge(query, "secret-token")
	assert.True(t, ok)
	assert.Equal(t, "challenge-42", challenge)

	_, ok = VerifyChallenge(query, "other-token")
	assert.False(t, ok)

	_, ok = VerifyChallenge(url.Values{}, "")
	assert.False(t, ok)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object": "whatsapp_business_account"}`)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature("app-secret", body, valid))
	assert.False(t, VerifySignature("app-secret", body, "sha256=deadbeef"))
	assert.False(t, VerifySignature("app-secret", body, "no-prefix"))
	// Verification is disabled without an app secret.
	assert.True(t, VerifySignature("", body, ""))
}

func TestParseEventTextMessages(t *testing.T) {
	body := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"contacts": [{"wa_id": "15551234567", "profile": {"name": "Dana"}}],
					"messages": [
						{"from": "15551234567", "id": "wamid.1", "type": "text", "text": {"body": "I run a coffee shop"}},
						{"from": "15551234567", "id": "wamid.2", "type": "image"}
					]
				}
			}]
		}]
	}`)

	event, err := ParseEvent(body)
	require.NoError(t, err)

	messages := event.TextMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "wamid.1", messages[0].ID)
	assert.Equal(t, "15551234567", messages[0].From)
	assert.Equal(t, "I run a coffee shop", messages[0].Text.Body)
}

func TestConfigured(t *testing.T) {
	assert.False(t, Config{}.Configured())
	assert.False(t, Config{PhoneNumberID: "1"}.Configured())
	assert.True(t, Config{PhoneNumberID: "1", AccessToken: "t"}.Configured())
}
