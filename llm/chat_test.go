package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path   string
	Auth   string
	Body   map[string]interface{}
	RawLen int
}

func newChatServer(t *testing.T, status int, response string, captured *capturedRequest, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		captured.Path = r.URL.Path
		captured.Auth = r.Header.Get("Authorization")
		captured.RawLen = len(body)
		assert.NoError(t, json.Unmarshal(body, &captured.Body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"choices": []interface{}{map[string]interface{}{"index": 0, "message": map[string]interface{}{"role": "assistant", "content": content}}},
		"usage":   map[string]interface{}{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
	})
	return string(b)
}

func TestChatBackend_TextJSONRequest(t *testing.T) {
	var captured capturedRequest
	var calls int32
	srv := newChatServer(t, http.StatusOK, chatResponse(`{"ok":true}`), &captured, &calls)

	client := NewClient()
	cfg := ProviderConfig{Provider: ProviderOpenAI, ModelName: "deepseek-chat", APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}
	res, err := client.Complete(context.Background(), cfg, Request{
		Prompt:            TextPrompt("give me json"),
		SystemInstruction: "be helpful",
		MIMEType:          MIMETypeJSON,
		Schema:            detailsSchema(),
	})

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, res.Text)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 5}, res.Usage)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "/v1/chat/completions", captured.Path)
	assert.Equal(t, "Bearer sk-test", captured.Auth)

	body := captured.Body
	assert.Equal(t, "deepseek-chat", body["model"])
	assert.InDelta(t, 0.7, body["temperature"], 0.0001)
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, body["response_format"])

	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	system := messages[0].(map[string]interface{})
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "be helpful", system["content"])
	user := messages[1].(map[string]interface{})
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "give me json"+jsonOnlyInstruction, user["content"])
}

func TestChatBackend_PlainTextHasNoJSONHints(t *testing.T) {
	var captured capturedRequest
	var calls int32
	srv := newChatServer(t, http.StatusOK, chatResponse("prose"), &captured, &calls)

	cfg := ProviderConfig{Provider: ProviderOpenAI, ModelName: "m", APIKey: "k", BaseURL: srv.URL}
	text, err := NewClient().Call(context.Background(), cfg, Request{Prompt: TextPrompt("write"), MIMEType: MIMETypeText})

	require.NoError(t, err)
	assert.Equal(t, "prose", text)
	assert.Equal(t, "/chat/completions", captured.Path)
	assert.NotContains(t, captured.Body, "response_format")
	messages := captured.Body["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "write", messages[0].(map[string]interface{})["content"])
}

func TestChatBackend_MultimodalImageRoundTrip(t *testing.T) {
	var captured capturedRequest
	var calls int32
	srv := newChatServer(t, http.StatusOK, chatResponse("described"), &captured, &calls)

	original := []byte("\x89PNG fake chart bytes")
	uri := EncodeDataURI("image/png", original)
	img, ok := ParseDataURI(uri)
	require.True(t, ok)

	cfg := ProviderConfig{Provider: ProviderOpenAI, ModelName: "m", APIKey: "k", BaseURL: srv.URL}
	_, err := NewClient().Call(context.Background(), cfg, Request{
		Prompt:   PartsPrompt(ImagePart(img), TextPart("analyze")),
		MIMEType: MIMETypeJSON,
	})
	require.NoError(t, err)

	messages := captured.Body["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)

	imagePart := content[0].(map[string]interface{})
	assert.Equal(t, "image_url", imagePart["type"])
	sentURL := imagePart["image_url"].(map[string]interface{})["url"].(string)
	assert.Equal(t, uri, sentURL)

	back, ok := ParseDataURI(sentURL)
	require.True(t, ok)
	decoded, err := back.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "image/png", back.MIMEType)
	assert.Equal(t, original, decoded)

	textPart := content[1].(map[string]interface{})
	assert.Equal(t, "text", textPart["type"])
	assert.Equal(t, "analyze", textPart["text"], "multimodal prompts do not get the JSON suffix")
}

func TestChatBackend_NonSuccessStatus(t *testing.T) {
	var captured capturedRequest
	var calls int32
	srv := newChatServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, &captured, &calls)

	cfg := ProviderConfig{Provider: ProviderOpenAI, ModelName: "m", APIKey: "k", BaseURL: srv.URL}
	_, err := NewClient().Call(context.Background(), cfg, Request{Prompt: TextPrompt("hi")})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad key")
	assert.Equal(t, KindTransport, Classify(err))
}

func TestChatBackend_EmptyChoices(t *testing.T) {
	var captured capturedRequest
	var calls int32
	srv := newChatServer(t, http.StatusOK, `{"choices":[]}`, &captured, &calls)

	cfg := ProviderConfig{Provider: ProviderOpenAI, ModelName: "m", APIKey: "k", BaseURL: srv.URL}
	text, err := NewClient().Call(context.Background(), cfg, Request{Prompt: TextPrompt("hi")})
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestChatBackend_FailsFastWithoutCredentials(t *testing.T) {
	var captured capturedRequest
	var calls int32
	srv := newChatServer(t, http.StatusOK, chatResponse("x"), &captured, &calls)

	client := NewClient()
	_, err := client.Call(context.Background(), ProviderConfig{Provider: ProviderOpenAI, BaseURL: srv.URL}, Request{Prompt: TextPrompt("hi")})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = client.Call(context.Background(), ProviderConfig{Provider: ProviderOpenAI, APIKey: "k"}, Request{Prompt: TextPrompt("hi")})
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestChatBackend_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := ProviderConfig{Provider: ProviderOpenAI, ModelName: "m", APIKey: "k", BaseURL: url}
	_, err := NewClient().Call(context.Background(), cfg, Request{Prompt: TextPrompt("hi")})
	require.Error(t, err)
	assert.Equal(t, KindTransport, Classify(err))
}
