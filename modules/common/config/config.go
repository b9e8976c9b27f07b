package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"face-fusion-server/modules/common/model"
)

// Gemini 백엔드
const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	AppEnv string
	Port   string

	// Gemini
	GeminiBackend         string
	GeminiAPIKey          string
	VertexProject         string
	VertexLocation        string
	VertexCredentialsJSON string
	VertexCredentialsPath string
	AnalysisModel         string
	ImageModel            string

	// Session
	DefaultLanguage    model.Language
	DefaultAspectRatio model.AspectRatio
	MaxUploadBytes     int64
	SessionIdleTTL     time.Duration
	SessionMaxAge      time.Duration

	// Redis (선택 - 비어 있으면 status relay 비활성)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// .env 파일 로드 여부 (로거 생성 후 출력)
	DotEnvLoaded bool
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	loaded := godotenv.Load() == nil

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	cfg.DotEnvLoaded = loaded
	return cfg, nil
}

// FromEnv - 현재 프로세스 환경에서 Config 생성 및 검증
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		GeminiBackend:         strings.ToLower(getEnv("GEMINI_BACKEND", BackendGemini)),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		VertexProject:         getEnv("VERTEX_PROJECT", ""),
		VertexLocation:        getEnv("VERTEX_LOCATION", "us-central1"),
		VertexCredentialsJSON: getEnv("VERTEXAI_CREDENTIALS_JSON", ""),
		VertexCredentialsPath: getEnv("VERTEXAI_CREDENTIALS_PATH", ""),
		AnalysisModel:         getEnv("ANALYSIS_MODEL", "gemini-2.5-flash"),
		ImageModel:            getEnv("IMAGE_MODEL", "gemini-2.5-flash-image"),

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		SessionIdleTTL: time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 120)) * time.Minute,
		SessionMaxAge:  time.Duration(getEnvInt("SESSION_MAX_AGE_HOURS", 24)) * time.Hour,

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getEnvBool("REDIS_USE_TLS", true),
	}

	lang, err := model.ParseLanguage(getEnv("DEFAULT_LANGUAGE", string(model.LanguageRussian)))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_LANGUAGE: %w", err)
	}
	cfg.DefaultLanguage = lang

	ratio, err := model.ParseAspectRatio(getEnv("DEFAULT_ASPECT_RATIO", string(model.AspectStory)))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_ASPECT_RATIO: %w", err)
	}
	cfg.DefaultAspectRatio = ratio

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	switch c.GeminiBackend {
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case BackendVertex:
		if c.VertexProject == "" {
			return fmt.Errorf("VERTEX_PROJECT is required")
		}
	default:
		return fmt.Errorf("GEMINI_BACKEND must be %q or %q, got %q", BackendGemini, BackendVertex, c.GeminiBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// IsDevelopment - 개발 환경 여부
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// RedisEnabled - status relay 사용 여부
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
