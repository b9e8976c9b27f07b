package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"face-fusion-server/modules/common/config"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ContentGenerator - GenerateContent 호출 단위 (genai.Models 가 구현)
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var _ ContentGenerator = (*genai.Models)(nil)

// NewClient - 설정된 백엔드(Gemini API / Vertex AI)로 genai 클라이언트 생성
func NewClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*genai.Client, error) {
	clientConfig := &genai.ClientConfig{}

	switch cfg.GeminiBackend {
	case config.BackendVertex:
		creds, err := vertexCredentials(cfg, log)
		if err != nil {
			return nil, err
		}
		clientConfig.Backend = genai.BackendVertexAI
		clientConfig.Project = cfg.VertexProject
		clientConfig.Location = cfg.VertexLocation
		clientConfig.Credentials = creds
	default:
		clientConfig.Backend = genai.BackendGeminiAPI
		clientConfig.APIKey = cfg.GeminiAPIKey
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	log.Info().
		Str("backend", cfg.GeminiBackend).
		Str("analysis_model", cfg.AnalysisModel).
		Str("image_model", cfg.ImageModel).
		Msg("✅ Gemini client initialized")
	return client, nil
}

// vertexCredentials - JSON 환경변수 > 파일 경로 > ADC 순서
func vertexCredentials(cfg *config.Config, log zerolog.Logger) (*auth.Credentials, error) {
	opts := &credentials.DetectOptions{Scopes: []string{cloudPlatformScope}}

	switch {
	case cfg.VertexCredentialsJSON != "":
		log.Info().Msg("Using VERTEXAI_CREDENTIALS_JSON from environment")
		opts.CredentialsJSON = []byte(cfg.VertexCredentialsJSON)
	case cfg.VertexCredentialsPath != "":
		log.Info().Str("path", cfg.VertexCredentialsPath).Msg("Using Vertex AI credentials file")
		data, err := os.ReadFile(cfg.VertexCredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON credentials in %s", cfg.VertexCredentialsPath)
		}
		opts.CredentialsJSON = data
	default:
		log.Warn().Msg("⚠️  No explicit Vertex AI credentials, using Application Default Credentials")
	}

	creds, err := credentials.DetectDefault(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect Vertex AI credentials: %w", err)
	}
	return creds, nil
}
