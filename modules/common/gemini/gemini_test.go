package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"face-fusion-server/modules/common/config"
)

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api error 429", genai.APIError{Code: 429, Message: "slow down"}, true},
		{"wrapped api error", fmt.Errorf("call: %w", genai.APIError{Code: 429}), true},
		{"resource exhausted", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{"api error 500", genai.APIError{Code: 500, Message: "internal"}, false},
		{"plain quota text", errors.New("Quota exceeded for metric"), true},
		{"plain rate limit text", errors.New("rate limit reached"), true},
		{"unrelated", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimited(tt.err))
		})
	}
}

func TestNewClient_GeminiBackend(t *testing.T) {
	cfg := &config.Config{
		GeminiBackend: config.BackendGemini,
		GeminiAPIKey:  "test-key",
		AnalysisModel: "gemini-2.5-flash",
		ImageModel:    "gemini-2.5-flash-image",
	}

	client, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.NotNil(t, client.Models)
}

func TestNewClient_VertexInvalidCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	cfg := &config.Config{
		GeminiBackend:         config.BackendVertex,
		VertexProject:         "proj",
		VertexLocation:        "us-central1",
		VertexCredentialsPath: path,
	}

	_, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON credentials")
}

func TestNewClient_VertexMissingCredentialsFile(t *testing.T) {
	cfg := &config.Config{
		GeminiBackend:         config.BackendVertex,
		VertexProject:         "proj",
		VertexCredentialsPath: filepath.Join(t.TempDir(), "missing.json"),
	}

	_, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read credentials file")
}
