package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"face-fusion-server/modules/common/model"
	"face-fusion-server/modules/common/utils"
	"face-fusion-server/modules/fusion"
)

// 세션 제어 에러
var (
	ErrRequirementsNotMet = errors.New("requirements not met")
	ErrAssetsRequired     = fmt.Errorf("%w: face and at least one other asset are required", ErrRequirementsNotMet)
	ErrFaceRequired       = fmt.Errorf("%w: face asset is required", ErrRequirementsNotMet)
	ErrPromptRequired     = fmt.Errorf("%w: scene description is required", ErrRequirementsNotMet)
	ErrBusy               = errors.New("another operation is in progress")
	ErrNoImage            = errors.New("no composite image to download")
	ErrSessionNotFound    = errors.New("session not found")
)

// State - 세션 처리 상태 (한 번에 하나의 작업만)
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateRendering State = "rendering"
)

// Analyzer - 장면 설명 생성기
type Analyzer interface {
	Analyze(ctx context.Context, assets model.AssetMap, lang model.Language) (string, error)
}

// Composer - 합성 이미지 생성기
type Composer interface {
	Compose(ctx context.Context, req fusion.CompositeRequest) (*fusion.CompositeImage, error)
}

// failure - 마지막 작업 에러 (접두어 키 + 원본 메시지)
type failure struct {
	prefix  StatusKey
	message string
}

// Download - 다운로드 응답
type Download struct {
	Data     []byte
	MIMEType string
	FileName string
}

// Session - 한 사용자의 에셋/프롬프트/결과를 소유하는 컨트롤러
type Session struct {
	id           string
	analyzer     Analyzer
	composer     Composer
	defaultRatio model.AspectRatio
	log          zerolog.Logger

	mutex        sync.Mutex
	state        State
	language     model.Language
	assets       model.AssetMap
	prompt       string
	status       StatusKey
	failure      *failure
	image        *fusion.CompositeImage
	createdAt    time.Time
	lastActivity time.Time

	onChange func(Snapshot)
}

// Options - 세션 생성 옵션
type Options struct {
	ID           string
	Language     model.Language
	DefaultRatio model.AspectRatio
	Analyzer     Analyzer
	Composer     Composer
	Logger       zerolog.Logger
	OnChange     func(Snapshot)
}

// New - 세션 생성
func New(opts Options) *Session {
	now := time.Now()
	lang := opts.Language
	if lang == "" {
		lang = model.LanguageRussian
	}
	ratio := opts.DefaultRatio
	if ratio == "" {
		ratio = model.AspectStory
	}
	return &Session{
		id:           opts.ID,
		analyzer:     opts.Analyzer,
		composer:     opts.Composer,
		defaultRatio: ratio,
		log:          opts.Logger.With().Str("session", opts.ID).Logger(),
		state:        StateIdle,
		language:     lang,
		assets:       model.AssetMap{},
		status:       StatusIdle,
		createdAt:    now,
		lastActivity: now,
		onChange:     opts.OnChange,
	}
}

// ID - 세션 ID
func (s *Session) ID() string { return s.id }

// touch - 호출 시 mutex 보유
func (s *Session) touch() {
	s.lastActivity = time.Now()
}

// notify - mutex 해제 후 호출
func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}

// beginMutation - Idle 상태에서만 변경 허용, 성공 시 mutex 를 잡은 채 반환
func (s *Session) beginMutation() error {
	s.mutex.Lock()
	if s.state != StateIdle {
		s.mutex.Unlock()
		return ErrBusy
	}
	s.touch()
	return nil
}

// UploadAsset - 원본 파일 바이트로 슬롯 설정
func (s *Session) UploadAsset(role model.AssetRole, file []byte, declaredMIME string) (*model.ImageRecord, error) {
	rec, err := utils.DecodeImageRecord(file, declaredMIME)
	if err != nil {
		s.log.Warn().Err(err).Str("role", string(role)).Msg("⚠️  Asset ingestion failed")
		return nil, err
	}
	return rec, s.SetAsset(role, rec)
}

// UploadDataURL - data URL 로 슬롯 설정
func (s *Session) UploadDataURL(role model.AssetRole, dataURL string) (*model.ImageRecord, error) {
	rec, err := utils.ParseDataURL(dataURL)
	if err != nil {
		s.log.Warn().Err(err).Str("role", string(role)).Msg("⚠️  Asset ingestion failed")
		return nil, err
	}
	return rec, s.SetAsset(role, rec)
}

// SetAsset - 슬롯 교체, 현재 결과/에러 초기화
func (s *Session) SetAsset(role model.AssetRole, rec *model.ImageRecord) error {
	if rec == nil {
		return &utils.IngestionFailedError{Reason: "missing image record"}
	}
	if err := s.beginMutation(); err != nil {
		return err
	}
	s.assets[role] = rec
	s.image = nil
	s.failure = nil
	s.status = StatusReadyToAnalyze
	s.mutex.Unlock()

	s.log.Info().
		Str("role", string(role)).
		Str("mime", rec.MIMEType).
		Int("width", rec.Width).
		Int("height", rec.Height).
		Int("bytes", len(rec.Data)).
		Msg("📥 Asset stored")
	s.notify()
	return nil
}

// RemoveAsset - 슬롯 삭제 (없으면 no-op), 에러 초기화
func (s *Session) RemoveAsset(role model.AssetRole) error {
	if err := s.beginMutation(); err != nil {
		return err
	}
	delete(s.assets, role)
	s.failure = nil
	if len(s.assets) == 0 {
		s.status = StatusIdle
	}
	s.mutex.Unlock()

	s.log.Info().Str("role", string(role)).Msg("🗑️  Asset removed")
	s.notify()
	return nil
}

// EditPrompt - 장면 설명을 그대로 교체
func (s *Session) EditPrompt(text string) error {
	if err := s.beginMutation(); err != nil {
		return err
	}
	s.prompt = text
	if text != "" && s.assets.Has(model.RoleFace) {
		s.status = StatusReadyToRender
	}
	s.mutex.Unlock()

	s.notify()
	return nil
}

// SetLanguage - 출력/상태 언어 변경
func (s *Session) SetLanguage(lang model.Language) error {
	if err := s.beginMutation(); err != nil {
		return err
	}
	s.language = lang
	s.mutex.Unlock()

	s.notify()
	return nil
}

// Analyze - face + non-face 1개 이상일 때 장면 설명 생성
// 원격 호출은 요청 context 의 취소와 분리된다.
func (s *Session) Analyze(ctx context.Context) (string, error) {
	if err := s.beginMutation(); err != nil {
		return "", err
	}
	if !s.assets.CanAnalyze() {
		s.mutex.Unlock()
		return "", ErrAssetsRequired
	}
	assets := s.assets.Clone()
	lang := s.language
	s.state = StateAnalyzing
	s.status = StatusAnalyzing
	s.failure = nil
	s.mutex.Unlock()
	s.notify()

	text, err := s.analyzer.Analyze(context.WithoutCancel(ctx), assets, lang)

	s.mutex.Lock()
	s.state = StateIdle
	s.touch()
	if err != nil {
		s.failure = &failure{prefix: errorAnalyze, message: err.Error()}
		s.status = StatusSystem
	} else {
		s.prompt = text
		s.status = StatusAnalyzed
	}
	s.mutex.Unlock()
	s.notify()

	if err != nil {
		s.log.Error().Err(err).Msg("❌ Analyze failed")
		return "", err
	}
	return text, nil
}

// Generate - face + 장면 설명으로 합성 이미지 생성
func (s *Session) Generate(ctx context.Context, ratio model.AspectRatio) (*fusion.CompositeImage, error) {
	if err := s.beginMutation(); err != nil {
		return nil, err
	}
	if !s.assets.Has(model.RoleFace) {
		s.mutex.Unlock()
		return nil, ErrFaceRequired
	}
	if s.prompt == "" {
		s.mutex.Unlock()
		return nil, ErrPromptRequired
	}
	if ratio == "" {
		ratio = s.defaultRatio
	}
	req := fusion.CompositeRequest{
		Assets:           s.assets.Clone(),
		SceneDescription: s.prompt,
		AspectRatio:      ratio,
	}
	s.state = StateRendering
	s.status = StatusRendering
	s.image = nil
	s.failure = nil
	s.mutex.Unlock()
	s.notify()

	img, err := s.composer.Compose(context.WithoutCancel(ctx), req)

	s.mutex.Lock()
	s.state = StateIdle
	s.touch()
	if err != nil {
		s.failure = &failure{prefix: errorRender, message: err.Error()}
		s.status = StatusSystem
	} else {
		s.image = img
		s.status = StatusSuccess
	}
	s.mutex.Unlock()
	s.notify()

	if err != nil {
		s.log.Error().Err(err).Msg("❌ Generate failed")
		return nil, err
	}
	return img, nil
}

// Download - 현재 합성 이미지와 파일명
func (s *Session) Download() (*Download, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.image == nil {
		return nil, ErrNoImage
	}
	return &Download{
		Data:     s.image.Data,
		MIMEType: s.image.MIMEType,
		FileName: fmt.Sprintf("valhalla-fusion-%s.%s", s.image.AspectRatio.FileToken(), utils.ExtensionForMIME(s.image.MIMEType)),
	}, nil
}

// AssetInfo - 스냅샷용 에셋 요약 (바이트 제외)
type AssetInfo struct {
	Role     model.AssetRole `json:"role"`
	Label    string          `json:"label"`
	MIMEType string          `json:"mimeType"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Bytes    int             `json:"bytes"`
}

// Snapshot - UI 로 전달되는 세션 상태
type Snapshot struct {
	SessionID    string            `json:"sessionId"`
	State        State             `json:"state"`
	Language     model.Language    `json:"language"`
	Assets       []AssetInfo       `json:"assets"`
	Prompt       string            `json:"prompt"`
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
	CanAnalyze   bool              `json:"canAnalyze"`
	CanGenerate  bool              `json:"canGenerate"`
	HasImage     bool              `json:"hasImage"`
	AspectRatio  model.AspectRatio `json:"aspectRatio,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastActivity time.Time         `json:"lastActivity"`
}

// Snapshot - 현재 상태 (현재 언어로 렌더링)
func (s *Session) Snapshot() Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	snap := Snapshot{
		SessionID:    s.id,
		State:        s.state,
		Language:     s.language,
		Assets:       make([]AssetInfo, 0, len(s.assets)),
		Prompt:       s.prompt,
		Status:       Translate(s.language, s.status),
		CanAnalyze:   s.state == StateIdle && s.assets.CanAnalyze(),
		CanGenerate:  s.state == StateIdle && s.assets.Has(model.RoleFace) && s.prompt != "",
		HasImage:     s.image != nil,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
	for _, role := range s.assets.Roles() {
		rec := s.assets.Get(role)
		snap.Assets = append(snap.Assets, AssetInfo{
			Role:     role,
			Label:    AssetLabel(s.language, role),
			MIMEType: rec.MIMEType,
			Width:    rec.Width,
			Height:   rec.Height,
			Bytes:    len(rec.Data),
		})
	}
	if s.failure != nil {
		snap.Error = Translate(s.language, s.failure.prefix) + ": " + s.failure.message
	}
	if s.image != nil {
		snap.AspectRatio = s.image.AspectRatio
	}
	return snap
}

// State - 현재 처리 상태
func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// activity - 정리 루틴용 시각 정보
func (s *Session) activity() (createdAt, lastActivity time.Time, busy bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.createdAt, s.lastActivity, s.state != StateIdle
}
