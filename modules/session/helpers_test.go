package session

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"face-fusion-server/modules/common/model"
	"face-fusion-server/modules/fusion"
)

type fakeAnalyzer struct {
	mu          sync.Mutex
	calls       int
	lastAssets  model.AssetMap
	lastLang    model.Language
	analyzeFunc func(ctx context.Context, assets model.AssetMap, lang model.Language) (string, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, assets model.AssetMap, lang model.Language) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastAssets = assets
	f.lastLang = lang
	fn := f.analyzeFunc
	f.mu.Unlock()
	if fn == nil {
		return "generated scene", nil
	}
	return fn(ctx, assets, lang)
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeComposer struct {
	mu          sync.Mutex
	calls       int
	lastRequest fusion.CompositeRequest
	composeFunc func(ctx context.Context, req fusion.CompositeRequest) (*fusion.CompositeImage, error)
}

func (f *fakeComposer) Compose(ctx context.Context, req fusion.CompositeRequest) (*fusion.CompositeImage, error) {
	f.mu.Lock()
	f.calls++
	f.lastRequest = req
	fn := f.composeFunc
	f.mu.Unlock()
	if fn == nil {
		ratio := req.AspectRatio
		if ratio == model.AspectAuto {
			ratio = model.AspectSquare
		}
		return &fusion.CompositeImage{Data: []byte("composite"), MIMEType: "image/jpeg", AspectRatio: ratio}, nil
	}
	return fn(ctx, req)
}

func (f *fakeComposer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newTestSession(a Analyzer, c Composer) *Session {
	return New(Options{
		ID:           "test-session",
		Language:     model.LanguageEnglish,
		DefaultRatio: model.AspectStory,
		Analyzer:     a,
		Composer:     c,
		Logger:       zerolog.Nop(),
	})
}

func testRecord(w, h int) *model.ImageRecord {
	return &model.ImageRecord{Data: []byte{1, 2, 3}, MIMEType: "image/png", Width: w, Height: h}
}
