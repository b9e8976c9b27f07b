package fusion

import (
	"errors"
	"fmt"
)

// BlockKind - 비정상 종료 사유 분류
type BlockKind string

const (
	BlockSafety                    BlockKind = "safety"
	BlockCopyrightRecitation       BlockKind = "copyright_recitation"
	BlockUnreconcilableCombination BlockKind = "unreconcilable_combination"
	BlockOtherRefusal              BlockKind = "other_refusal"
)

// RefusalExcerptLimit - 거절 텍스트 발췌 최대 길이 (rune)
const RefusalExcerptLimit = 300

// ErrGenerationEmpty - 이미지도 텍스트도 없는 응답
var ErrGenerationEmpty = errors.New("no image generated")

// AnalysisFailedError - 분석 호출 실패
type AnalysisFailedError struct {
	Err error
}

func (e *AnalysisFailedError) Error() string {
	return e.Err.Error()
}

func (e *AnalysisFailedError) Unwrap() error { return e.Err }

// GenerationFailedError - 합성 호출 자체(전송/서비스)가 실패
type GenerationFailedError struct {
	Err error
}

func (e *GenerationFailedError) Error() string {
	return e.Err.Error()
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }

// GenerationBlockedError - 종료 사유로 차단됨
type GenerationBlockedError struct {
	Kind         BlockKind
	FinishReason string
}

func (e *GenerationBlockedError) Error() string {
	switch e.Kind {
	case BlockSafety:
		return "Blocked by Safety Filters. The model detected content it considers sensitive (likely the face or skin exposure). " +
			"Try a different face photo (neutral expression, good lighting) or simpler clothing."
	case BlockCopyrightRecitation:
		return "Copyright check triggered. One of your clothing items or logos is too recognizable. Try a different outfit image."
	case BlockUnreconcilableCombination:
		return "Model refused the combination (IMAGE_OTHER). This usually happens when the model cannot reconcile the face with the target body/clothing realistically. " +
			"\n\nTip: Try a 'Style' image that matches the lighting of your 'Face' photo better."
	default:
		return fmt.Sprintf("Generation failed. Reason: %s.", e.FinishReason)
	}
}

// RefusalTextError - 이미지 대신 설명 텍스트만 반환됨
type RefusalTextError struct {
	Excerpt   string
	Truncated bool
}

func (e *RefusalTextError) Error() string {
	if e.Truncated {
		return "Model Refusal: " + e.Excerpt + "..."
	}
	return "Model Refusal: " + e.Excerpt
}

// GenerationEmptyError - ErrGenerationEmpty 에 종료 사유를 붙인 것
type GenerationEmptyError struct {
	FinishReason string
}

func (e *GenerationEmptyError) Error() string {
	reason := e.FinishReason
	if reason == "" {
		reason = "Unknown"
	}
	return fmt.Sprintf("No image generated. Finish Reason: %s. Try refreshing or changing input images.", reason)
}

func (e *GenerationEmptyError) Is(target error) bool {
	return target == ErrGenerationEmpty
}

// BlockKindOf - err 가 GenerationBlockedError 면 분류를 반환
func BlockKindOf(err error) (BlockKind, bool) {
	var blocked *GenerationBlockedError
	if errors.As(err, &blocked) {
		return blocked.Kind, true
	}
	return "", false
}
