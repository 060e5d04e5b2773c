package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRequestFlattensConversation(t *testing.T) {
	t.Parallel()

	req := ToRequest(domain.GenerationRequest{Messages: []domain.Message{
		{Role: domain.RoleSystem, Content: "simulate a group chat"},
		{Role: domain.RoleUser, Content: "周末干嘛"},
		{Role: "Snaur", Content: "睡觉"},
		{Role: domain.RoleAssistant, Content: "..."},
		{Role: domain.RoleSystem, Content: "Topic for this turn: 讨论周末计划"},
	}}, "qwen2.5:7b")

	assert.Equal(t, "qwen2.5:7b", req.Model)
	assert.True(t, req.Stream)
	assert.Equal(t, "simulate a group chat", req.System)
	assert.Equal(t, "User: 周末干嘛\nSnaur: 睡觉\nAssistant: ...\nSystem: Topic for this turn: 讨论周末计划\n", req.Prompt)
}

func TestClientGenerateStreamsBody(t *testing.T) {
	t.Parallel()

	stream := `{"response":"榆木华: 周末","done":false}` + "\n" + `{"response":"去爬山吧","done":true}` + "\n"
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, generateEndpoint, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, stream)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("qwen2.5:7b", nil, WithBaseURL(server.URL+"/"), WithTimeout(5*time.Second), WithSeed(7))
	require.NoError(t, err)

	body, err := client.Generate(context.Background(), domain.GenerationRequest{Messages: []domain.Message{
		{Role: domain.RoleSystem, Content: "profile"},
		{Role: domain.RoleUser, Content: "你好"},
	}})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, stream, string(data))

	assert.Equal(t, "qwen2.5:7b", got.Model)
	assert.Equal(t, "profile", got.System)
	assert.Equal(t, "User: 你好\n", got.Prompt)
	require.NotNil(t, got.Options)
	assert.Equal(t, 7, got.Options.Seed)
}

func TestClientGenerateReportsHTTPFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("nope", nil, WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), domain.GenerationRequest{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 404")
	assert.ErrorContains(t, err, "model 'nope' not found")
}

func TestClientGenerateHonoursContext(t *testing.T) {
	t.Parallel()

	client, err := NewClient("qwen2.5:7b", nil, WithBaseURL("http://127.0.0.1:1"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Generate(ctx, domain.GenerationRequest{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewClientRequiresModel(t *testing.T) {
	t.Parallel()

	_, err := NewClient("", nil)
	require.Error(t, err)
}
