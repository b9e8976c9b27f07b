package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"face-fusion-server/modules/common/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "GEMINI_BACKEND", "GEMINI_API_KEY", "VERTEX_PROJECT",
		"VERTEX_LOCATION", "ANALYSIS_MODEL", "IMAGE_MODEL", "DEFAULT_LANGUAGE",
		"DEFAULT_ASPECT_RATIO", "MAX_UPLOAD_MB", "REDIS_HOST", "REDIS_USE_TLS",
		"SESSION_IDLE_TTL_MINUTES", "SESSION_MAX_AGE_HOURS",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendGemini, cfg.GeminiBackend)
	assert.Equal(t, "gemini-2.5-flash", cfg.AnalysisModel)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.ImageModel)
	assert.Equal(t, model.LanguageRussian, cfg.DefaultLanguage)
	assert.Equal(t, model.AspectStory, cfg.DefaultAspectRatio)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge)
	assert.False(t, cfg.RedisEnabled())
	assert.True(t, cfg.RedisUseTLS)
	assert.True(t, cfg.IsDevelopment())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_BACKEND", "Vertex")
	t.Setenv("VERTEX_PROJECT", "proj")
	t.Setenv("DEFAULT_LANGUAGE", "en")
	t.Setenv("DEFAULT_ASPECT_RATIO", "auto")
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_USE_TLS", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, BackendVertex, cfg.GeminiBackend)
	assert.Equal(t, "us-central1", cfg.VertexLocation)
	assert.Equal(t, model.LanguageEnglish, cfg.DefaultLanguage)
	assert.Equal(t, model.AspectAuto, cfg.DefaultAspectRatio)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)
	assert.True(t, cfg.RedisEnabled())
	assert.False(t, cfg.RedisUseTLS)
	assert.Equal(t, "cache:6379", cfg.GetRedisAddr())
}

func TestFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing api key", map[string]string{}, "GEMINI_API_KEY is required"},
		{"missing vertex project", map[string]string{"GEMINI_BACKEND": "vertex"}, "VERTEX_PROJECT is required"},
		{"unknown backend", map[string]string{"GEMINI_BACKEND": "openai"}, "GEMINI_BACKEND must be"},
		{"bad language", map[string]string{"GEMINI_API_KEY": "k", "DEFAULT_LANGUAGE": "fr"}, "DEFAULT_LANGUAGE"},
		{"bad ratio", map[string]string{"GEMINI_API_KEY": "k", "DEFAULT_ASPECT_RATIO": "2:1"}, "DEFAULT_ASPECT_RATIO"},
		{"bad upload cap", map[string]string{"GEMINI_API_KEY": "k", "MAX_UPLOAD_MB": "0"}, "MAX_UPLOAD_MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "k")
		t.Chdir(t.TempDir())

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.False(t, cfg.DotEnvLoaded)
	})

	t.Run("file present", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "k")
		t.Setenv("FACE_FUSION_TEST_MARKER", "")
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FACE_FUSION_TEST_MARKER=1\n"), 0o600))
		t.Chdir(dir)

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.True(t, cfg.DotEnvLoaded)
	})
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, (&Config{AppEnv: "development"}).IsDevelopment())
	assert.False(t, (&Config{AppEnv: "production"}).IsDevelopment())
}
