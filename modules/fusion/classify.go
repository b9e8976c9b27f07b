package fusion

import (
	"strings"

	"google.golang.org/genai"
)

// 이미지 모델 전용 종료 사유 (SDK 상수에 없는 값 포함)
const (
	finishReasonImageSafety     genai.FinishReason = "IMAGE_SAFETY"
	finishReasonImageRecitation genai.FinishReason = "IMAGE_RECITATION"
	finishReasonImageOther      genai.FinishReason = "IMAGE_OTHER"
)

// OutcomeKind - 합성 응답 분류 결과
type OutcomeKind int

const (
	OutcomeImage OutcomeKind = iota
	OutcomeBlocked
	OutcomeRefusalText
	OutcomeEmpty
)

// Outcome - 응답 한 건의 분류 결과
type Outcome struct {
	Kind         OutcomeKind
	Data         []byte
	MIMEType     string
	Text         string
	Block        BlockKind
	FinishReason string
	Rule         string // 매칭된 규칙 이름
}

// Err - 실패 분류를 타입 에러로 변환 (이미지면 nil)
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeImage:
		return nil
	case OutcomeBlocked:
		return &GenerationBlockedError{Kind: o.Block, FinishReason: o.FinishReason}
	case OutcomeRefusalText:
		excerpt, truncated := truncateRunes(o.Text, RefusalExcerptLimit)
		return &RefusalTextError{Excerpt: excerpt, Truncated: truncated}
	default:
		return &GenerationEmptyError{FinishReason: o.FinishReason}
	}
}

// rule - 우선순위 순서로 평가되는 분류 규칙
type rule struct {
	name  string
	match func(resp *genai.GenerateContentResponse) (Outcome, bool)
}

// classificationRules - 위에서부터 첫 매칭이 결과
var classificationRules = []rule{
	{"prompt_blocked", promptBlocked},
	{"abnormal_finish", abnormalFinish},
	{"inline_image", firstInlineImage},
	{"refusal_text", refusalText},
	{"empty", emptyResponse},
}

// Classify - 합성 응답을 Outcome 으로 분류
func Classify(resp *genai.GenerateContentResponse) Outcome {
	for _, r := range classificationRules {
		if out, ok := r.match(resp); ok {
			out.Rule = r.name
			return out
		}
	}
	return Outcome{Kind: OutcomeEmpty}
}

// ClassifyFinishReason - 정상 종료면 ok=false
func ClassifyFinishReason(reason genai.FinishReason) (BlockKind, bool) {
	switch reason {
	case "", genai.FinishReasonStop, genai.FinishReasonUnspecified:
		return "", false
	case genai.FinishReasonSafety, finishReasonImageSafety:
		return BlockSafety, true
	case genai.FinishReasonRecitation, finishReasonImageRecitation:
		return BlockCopyrightRecitation, true
	case genai.FinishReasonOther, finishReasonImageOther:
		return BlockUnreconcilableCombination, true
	default:
		return BlockOtherRefusal, true
	}
}

func firstCandidate(resp *genai.GenerateContentResponse) *genai.Candidate {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0]
}

func finishReasonOf(resp *genai.GenerateContentResponse) string {
	if c := firstCandidate(resp); c != nil {
		return string(c.FinishReason)
	}
	return ""
}

func candidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	c := firstCandidate(resp)
	if c == nil || c.Content == nil {
		return nil
	}
	return c.Content.Parts
}

// promptBlocked - 후보 없이 프롬프트 자체가 차단된 경우
func promptBlocked(resp *genai.GenerateContentResponse) (Outcome, bool) {
	if resp == nil || len(resp.Candidates) > 0 || resp.PromptFeedback == nil || resp.PromptFeedback.BlockReason == "" {
		return Outcome{}, false
	}
	reason := string(resp.PromptFeedback.BlockReason)
	kind := BlockOtherRefusal
	if reason == string(genai.BlockedReasonSafety) {
		kind = BlockSafety
	}
	return Outcome{Kind: OutcomeBlocked, Block: kind, FinishReason: reason}, true
}

func abnormalFinish(resp *genai.GenerateContentResponse) (Outcome, bool) {
	c := firstCandidate(resp)
	if c == nil {
		return Outcome{}, false
	}
	kind, blocked := ClassifyFinishReason(c.FinishReason)
	if !blocked {
		return Outcome{}, false
	}
	return Outcome{Kind: OutcomeBlocked, Block: kind, FinishReason: string(c.FinishReason)}, true
}

func firstInlineImage(resp *genai.GenerateContentResponse) (Outcome, bool) {
	for _, part := range candidateParts(resp) {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return Outcome{
			Kind:         OutcomeImage,
			Data:         part.InlineData.Data,
			MIMEType:     part.InlineData.MIMEType,
			FinishReason: finishReasonOf(resp),
		}, true
	}
	return Outcome{}, false
}

func refusalText(resp *genai.GenerateContentResponse) (Outcome, bool) {
	text := collectText(candidateParts(resp))
	if text == "" {
		return Outcome{}, false
	}
	return Outcome{Kind: OutcomeRefusalText, Text: text, FinishReason: finishReasonOf(resp)}, true
}

func emptyResponse(resp *genai.GenerateContentResponse) (Outcome, bool) {
	return Outcome{Kind: OutcomeEmpty, FinishReason: finishReasonOf(resp)}, true
}

// collectText - thought 파트를 제외한 텍스트 연결
func collectText(parts []*genai.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func truncateRunes(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}
