package fusion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestClassifyFinishReason(t *testing.T) {
	tests := []struct {
		reason  genai.FinishReason
		want    BlockKind
		blocked bool
	}{
		{"", "", false},
		{genai.FinishReasonStop, "", false},
		{genai.FinishReasonUnspecified, "", false},
		{genai.FinishReasonSafety, BlockSafety, true},
		{"IMAGE_SAFETY", BlockSafety, true},
		{genai.FinishReasonRecitation, BlockCopyrightRecitation, true},
		{"IMAGE_RECITATION", BlockCopyrightRecitation, true},
		{genai.FinishReasonOther, BlockUnreconcilableCombination, true},
		{"IMAGE_OTHER", BlockUnreconcilableCombination, true},
		{"MAX_TOKENS", BlockOtherRefusal, true},
		{"PROHIBITED_CONTENT", BlockOtherRefusal, true},
		{"NO_IMAGE", BlockOtherRefusal, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			kind, blocked := ClassifyFinishReason(tt.reason)
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestClassify(t *testing.T) {
	image := genai.NewPartFromBytes([]byte("png"), "image/png")

	t.Run("abnormal finish beats image", func(t *testing.T) {
		out := Classify(candidateResponse(genai.FinishReasonRecitation, image))
		assert.Equal(t, OutcomeBlocked, out.Kind)
		assert.Equal(t, BlockCopyrightRecitation, out.Block)
		assert.Nil(t, out.Data)
		assert.Equal(t, "abnormal_finish", out.Rule)

		err := out.Err()
		assert.Contains(t, err.Error(), "Try a different outfit image.")
	})

	t.Run("first image wins", func(t *testing.T) {
		second := genai.NewPartFromBytes([]byte("second"), "image/jpeg")
		out := Classify(candidateResponse(genai.FinishReasonStop, genai.NewPartFromText("text"), image, second))
		assert.Equal(t, OutcomeImage, out.Kind)
		assert.Equal(t, []byte("png"), out.Data)
		assert.Equal(t, "image/png", out.MIMEType)
		assert.NoError(t, out.Err())
	})

	t.Run("text concatenated", func(t *testing.T) {
		out := Classify(candidateResponse(genai.FinishReasonStop,
			genai.NewPartFromText("I can't "),
			genai.NewPartFromText("do that."),
		))
		assert.Equal(t, OutcomeRefusalText, out.Kind)
		assert.Equal(t, "Model Refusal: I can't do that.", out.Err().Error())
	})

	t.Run("long refusal truncated to limit", func(t *testing.T) {
		long := strings.Repeat("я", RefusalExcerptLimit+50)
		out := Classify(candidateResponse(genai.FinishReasonStop, genai.NewPartFromText(long)))

		var refusal *RefusalTextError
		require.ErrorAs(t, out.Err(), &refusal)
		assert.True(t, refusal.Truncated)
		assert.Equal(t, RefusalExcerptLimit, len([]rune(refusal.Excerpt)))
		assert.True(t, strings.HasSuffix(refusal.Error(), "..."))
	})

	t.Run("empty candidate", func(t *testing.T) {
		out := Classify(candidateResponse(genai.FinishReasonStop))
		assert.Equal(t, OutcomeEmpty, out.Kind)
		assert.ErrorIs(t, out.Err(), ErrGenerationEmpty)
		assert.Contains(t, out.Err().Error(), "Finish Reason: STOP")
	})

	t.Run("nil response", func(t *testing.T) {
		out := Classify(nil)
		assert.Equal(t, OutcomeEmpty, out.Kind)
		assert.Contains(t, out.Err().Error(), "Finish Reason: Unknown")
	})

	t.Run("prompt blocked without candidates", func(t *testing.T) {
		out := Classify(&genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
		})
		assert.Equal(t, OutcomeBlocked, out.Kind)
		assert.Equal(t, BlockSafety, out.Block)

		out = Classify(&genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: "BLOCKLIST"},
		})
		assert.Equal(t, BlockOtherRefusal, out.Block)
		assert.Equal(t, "Generation failed. Reason: BLOCKLIST.", out.Err().Error())
	})
}

func TestGenerationBlockedError_Messages(t *testing.T) {
	msgs := map[BlockKind]string{}
	for _, kind := range []BlockKind{BlockSafety, BlockCopyrightRecitation, BlockUnreconcilableCombination, BlockOtherRefusal} {
		err := &GenerationBlockedError{Kind: kind, FinishReason: "X"}
		msgs[kind] = err.Error()

		got, ok := BlockKindOf(err)
		assert.True(t, ok)
		assert.Equal(t, kind, got)
	}
	assert.Contains(t, msgs[BlockUnreconcilableCombination], "IMAGE_OTHER")
	assert.Equal(t, "Generation failed. Reason: X.", msgs[BlockOtherRefusal])
	assert.Len(t, map[string]bool{
		msgs[BlockSafety]: true, msgs[BlockCopyrightRecitation]: true,
		msgs[BlockUnreconcilableCombination]: true, msgs[BlockOtherRefusal]: true,
	}, 4)
}
