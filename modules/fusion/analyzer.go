package fusion

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"face-fusion-server/modules/common/gemini"
	"face-fusion-server/modules/common/model"
)

// Analyzer - non-face 레퍼런스로 장면 설명 생성
type Analyzer struct {
	generator gemini.ContentGenerator
	model     string
	log       zerolog.Logger
}

// NewAnalyzer - Analyzer 생성
func NewAnalyzer(generator gemini.ContentGenerator, modelName string, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		generator: generator,
		model:     modelName,
		log:       log.With().Str("component", "analyzer").Logger(),
	}
}

// BuildAnalysisParts - 지시문 + (라벨, 이미지) 쌍을 우선순위 순서로
// 존재하는 역할이 없어도 지시문만으로 요청을 만든다.
func BuildAnalysisParts(assets model.AssetMap, lang model.Language) []*genai.Part {
	parts := []*genai.Part{genai.NewPartFromText(AnalysisInstruction(lang))}
	for _, role := range assets.PresentNonFace() {
		rec := assets.Get(role)
		parts = append(parts,
			genai.NewPartFromText(AnalysisLabel(role)),
			inlineImagePart(rec),
		)
	}
	return parts
}

// Analyze - 분석 호출 1회 (재시도 없음), 응답 텍스트를 그대로 반환
func (a *Analyzer) Analyze(ctx context.Context, assets model.AssetMap, lang model.Language) (string, error) {
	parts := BuildAnalysisParts(assets, lang)
	content := genai.NewContentFromParts(parts, genai.RoleUser)

	a.log.Info().
		Str("model", a.model).
		Str("language", string(lang)).
		Int("parts", len(parts)).
		Int("images", len(assets.PresentNonFace())).
		Msg("🔍 Analyzing reference assets")

	resp, err := a.generator.GenerateContent(ctx, a.model, []*genai.Content{content}, nil)
	if err != nil {
		a.log.Error().Err(err).Msg("❌ Analysis request failed")
		return "", &AnalysisFailedError{Err: err}
	}

	text := responseText(resp)
	a.log.Info().Int("chars", len(text)).Msg("✅ Scene description received")
	return text, nil
}

// responseText - 첫 후보의 텍스트 파트 연결 (없으면 "")
func responseText(resp *genai.GenerateContentResponse) string {
	return collectText(candidateParts(resp))
}

func inlineImagePart(rec *model.ImageRecord) *genai.Part {
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: rec.MIMEType,
			Data:     rec.Data,
		},
	}
}
