package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF 디코더 등록
	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록
	"net/http"
	"strings"

	"github.com/kolesa-team/go-webp/decoder"

	"face-fusion-server/modules/common/model"
)

// 지원 미디어 타입
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
)

var extensions = map[string]string{
	MIMEPNG:  "png",
	MIMEJPEG: "jpeg",
	MIMEGIF:  "gif",
	MIMEWebP: "webp",
}

// IngestionFailedError - 업로드 파일을 이미지 레코드로 만들지 못함
type IngestionFailedError struct {
	Reason string
	Err    error
}

func (e *IngestionFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingestion failed: %s: %v", e.Reason, e.Err)
	}
	return "ingestion failed: " + e.Reason
}

func (e *IngestionFailedError) Unwrap() error { return e.Err }

// IsIngestionFailed reports whether err came from image ingestion.
func IsIngestionFailed(err error) bool {
	var target *IngestionFailedError
	return errors.As(err, &target)
}

func ingestionError(reason string, err error) error {
	return &IngestionFailedError{Reason: reason, Err: err}
}

// DecodeImageRecord - 원본 바이트를 ImageRecord 로 변환 (바이트는 그대로 보관)
// 미디어 타입은 내용으로 판별한다. declaredMIME 은 판별 결과와 다를 때 에러 메시지에만 쓰인다.
func DecodeImageRecord(data []byte, declaredMIME string) (*model.ImageRecord, error) {
	if len(data) == 0 {
		return nil, ingestionError("empty file", nil)
	}

	mimeType := http.DetectContentType(data)
	if _, ok := extensions[mimeType]; !ok {
		if declaredMIME != "" {
			return nil, ingestionError(fmt.Sprintf("unsupported media type %s (declared %s)", mimeType, declaredMIME), nil)
		}
		return nil, ingestionError("unsupported media type "+mimeType, nil)
	}

	width, height, err := dimensions(data, mimeType)
	if err != nil {
		return nil, ingestionError("failed to read "+mimeType, err)
	}
	if width <= 0 || height <= 0 {
		return nil, ingestionError(fmt.Sprintf("invalid dimensions %dx%d", width, height), nil)
	}

	return &model.ImageRecord{
		Data:     data,
		MIMEType: mimeType,
		Width:    width,
		Height:   height,
	}, nil
}

// dimensions - 픽셀 크기 추출
func dimensions(data []byte, mimeType string) (int, int, error) {
	if mimeType == MIMEWebP {
		// 헤더의 bitstream features 만 읽는다
		d, err := decoder.NewDecoder(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return 0, 0, err
		}
		features := d.GetFeatures()
		return features.Width, features.Height, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// ParseDataURL - "data:<mime>;base64,<payload>" 형식 파싱
func ParseDataURL(dataURL string) (*model.ImageRecord, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, ingestionError("invalid data URL format", nil)
	}
	declared := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, ingestionError("invalid base64 payload", err)
	}
	return DecodeImageRecord(data, declared)
}

// EncodeDataURL - 이미지 바이트를 data URL 로 변환
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ExtensionForMIME - 다운로드 파일 확장자
func ExtensionForMIME(mimeType string) string {
	if ext, ok := extensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	return "png"
}
