package fusion

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"face-fusion-server/modules/common/gemini"
	"face-fusion-server/modules/common/model"
)

// CompositeRequest - 합성 요청 입력
type CompositeRequest struct {
	Assets           model.AssetMap
	SceneDescription string
	AspectRatio      model.AspectRatio // 비어 있거나 auto 면 레퍼런스에서 파생
}

// CompositeImage - 합성 결과
type CompositeImage struct {
	Data        []byte
	MIMEType    string
	AspectRatio model.AspectRatio
}

// Composer - face + 장면 설명 + 나머지 레퍼런스로 이미지 1장 생성
type Composer struct {
	generator gemini.ContentGenerator
	model     string
	log       zerolog.Logger
}

// NewComposer - Composer 생성
func NewComposer(generator gemini.ContentGenerator, modelName string, log zerolog.Logger) *Composer {
	return &Composer{
		generator: generator,
		model:     modelName,
		log:       log.With().Str("component", "composer").Logger(),
	}
}

// safetySettings - 모든 카테고리 BLOCK_NONE (고정값)
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryCivicIntegrity, Threshold: genai.HarmBlockThresholdBlockNone},
}

// ResolveAspectRatio - 명시값 우선, 없으면 style -> face 순으로 가장 가까운 지원 비율
func ResolveAspectRatio(assets model.AssetMap, requested model.AspectRatio) model.AspectRatio {
	if requested != "" && requested != model.AspectAuto {
		return requested
	}
	ref := assets.Get(model.RoleStyle)
	if ref == nil {
		ref = assets.Get(model.RoleFace)
	}
	if ref == nil {
		return model.NearestAspectRatio(0, 0)
	}
	return model.NearestAspectRatio(ref.Width, ref.Height)
}

// BuildCompositeParts - 지시문, face, 나머지 역할 순서
func BuildCompositeParts(assets model.AssetMap, sceneDescription string) []*genai.Part {
	parts := []*genai.Part{genai.NewPartFromText(CompositeInstruction(sceneDescription))}

	if face := assets.Get(model.RoleFace); face != nil {
		parts = append(parts,
			genai.NewPartFromText(CompositeLabel(model.RoleFace)),
			inlineImagePart(face),
		)
	}
	for _, role := range assets.PresentNonFace() {
		parts = append(parts,
			genai.NewPartFromText(CompositeLabel(role)),
			inlineImagePart(assets.Get(role)),
		)
	}
	return parts
}

// CompositeConfig - 비율 + 안전 설정
func CompositeConfig(ratio model.AspectRatio) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: string(ratio),
		},
		SafetySettings: safetySettings,
	}
}

// Compose - 합성 호출 1회 (재시도 없음)
func (c *Composer) Compose(ctx context.Context, req CompositeRequest) (*CompositeImage, error) {
	ratio := ResolveAspectRatio(req.Assets, req.AspectRatio)
	parts := BuildCompositeParts(req.Assets, req.SceneDescription)
	content := genai.NewContentFromParts(parts, genai.RoleUser)

	c.log.Info().
		Str("model", c.model).
		Str("aspect_ratio", string(ratio)).
		Int("parts", len(parts)).
		Msg("🎨 Requesting composite image")

	resp, err := c.generator.GenerateContent(ctx, c.model, []*genai.Content{content}, CompositeConfig(ratio))
	if err != nil {
		c.log.Error().Err(err).Msg("❌ Composite request failed")
		return nil, &GenerationFailedError{Err: err}
	}

	out := Classify(resp)
	if err := out.Err(); err != nil {
		c.log.Warn().
			Str("rule", out.Rule).
			Str("finish_reason", out.FinishReason).
			Err(err).
			Msg("⚠️  Composite generation rejected")
		return nil, err
	}

	mimeType := out.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	c.log.Info().Int("bytes", len(out.Data)).Str("mime", mimeType).Msg("✅ Received image from Gemini")

	return &CompositeImage{
		Data:        out.Data,
		MIMEType:    mimeType,
		AspectRatio: ratio,
	}, nil
}
