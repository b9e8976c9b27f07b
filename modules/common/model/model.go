package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ImageRecord - 업로드된 레퍼런스 이미지 (생성 후 변경하지 않음)
type ImageRecord struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// AssetRole - 레퍼런스 이미지 역할
type AssetRole string

const (
	RoleFace        AssetRole = "face"
	RoleStyle       AssetRole = "style"
	RoleClothing    AssetRole = "clothing"
	RoleShoes       AssetRole = "shoes"
	RoleAccessories AssetRole = "accessories"
	RoleHairstyle   AssetRole = "hairstyle"
)

// NonFaceRoles - 요청 세그먼트를 만들 때 사용하는 고정 우선순위
var NonFaceRoles = []AssetRole{
	RoleStyle,
	RoleClothing,
	RoleShoes,
	RoleAccessories,
	RoleHairstyle,
}

// AllRoles - face 포함 전체 역할
var AllRoles = append([]AssetRole{RoleFace}, NonFaceRoles...)

// ErrUnknownRole - 지원하지 않는 역할 이름
var ErrUnknownRole = errors.New("unknown asset role")

// ParseAssetRole - 문자열을 AssetRole 로 변환
func ParseAssetRole(s string) (AssetRole, error) {
	role := AssetRole(strings.ToLower(strings.TrimSpace(s)))
	for _, r := range AllRoles {
		if r == role {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// AssetMap - 역할별 이미지 (부분 맵)
type AssetMap map[AssetRole]*ImageRecord

// Get returns the record for role, or nil.
func (m AssetMap) Get(role AssetRole) *ImageRecord {
	if m == nil {
		return nil
	}
	return m[role]
}

// Has reports whether role holds a record.
func (m AssetMap) Has(role AssetRole) bool {
	return m.Get(role) != nil
}

// PresentNonFace - 존재하는 non-face 역할 (우선순위 순서)
func (m AssetMap) PresentNonFace() []AssetRole {
	roles := make([]AssetRole, 0, len(NonFaceRoles))
	for _, role := range NonFaceRoles {
		if m.Has(role) {
			roles = append(roles, role)
		}
	}
	return roles
}

// Roles - 존재하는 전체 역할 (face 먼저)
func (m AssetMap) Roles() []AssetRole {
	roles := make([]AssetRole, 0, len(AllRoles))
	for _, role := range AllRoles {
		if m.Has(role) {
			roles = append(roles, role)
		}
	}
	return roles
}

// CanAnalyze - face + 최소 1개의 non-face 역할
func (m AssetMap) CanAnalyze() bool {
	return m.Has(RoleFace) && len(m.PresentNonFace()) > 0
}

// Clone - 슬롯 맵 복사 (레코드는 불변이라 공유)
func (m AssetMap) Clone() AssetMap {
	out := make(AssetMap, len(m))
	for role, rec := range m {
		if rec != nil {
			out[role] = rec
		}
	}
	return out
}

// Language - 출력 언어
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
)

// ParseLanguage - 지원 언어 검증
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageRussian:
		return LanguageRussian, nil
	}
	return "", fmt.Errorf("unsupported language: %q", s)
}

// AspectRatio - "W:H" 형식의 지원 비율
type AspectRatio string

const (
	AspectSquare     AspectRatio = "1:1"
	AspectPortrait   AspectRatio = "3:4"
	AspectLandscape  AspectRatio = "4:3"
	AspectStory      AspectRatio = "9:16"
	AspectWidescreen AspectRatio = "16:9"

	// AspectAuto asks for the ratio to be derived from the reference images.
	AspectAuto AspectRatio = "auto"
)

// SupportedAspectRatios - 파생 시 이 순서대로 비교 (동률이면 앞쪽 우선)
var SupportedAspectRatios = []AspectRatio{
	AspectSquare,
	AspectPortrait,
	AspectLandscape,
	AspectStory,
	AspectWidescreen,
}

// ParseAspectRatio - 빈 문자열과 "auto" 는 AspectAuto
func ParseAspectRatio(s string) (AspectRatio, error) {
	v := AspectRatio(strings.ToLower(strings.TrimSpace(s)))
	if v == "" || v == AspectAuto {
		return AspectAuto, nil
	}
	for _, r := range SupportedAspectRatios {
		if r == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unsupported aspect ratio: %q (allowed: 1:1, 3:4, 4:3, 9:16, 16:9)", s)
}

// Dimensions - 비율의 가로, 세로 값
func (a AspectRatio) Dimensions() (int, int) {
	w, h, ok := strings.Cut(string(a), ":")
	if !ok {
		return 0, 0
	}
	wi, err1 := strconv.Atoi(w)
	hi, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return wi, hi
}

// Value - 가로/세로 수치
func (a AspectRatio) Value() float64 {
	w, h := a.Dimensions()
	if h == 0 {
		return 0
	}
	return float64(w) / float64(h)
}

// FileToken - 파일명용 표기 ("9:16" -> "9x16")
func (a AspectRatio) FileToken() string {
	return strings.ReplaceAll(string(a), ":", "x")
}

// NearestAspectRatio - |비율 - width/height| 가 최소인 지원 비율
func NearestAspectRatio(width, height int) AspectRatio {
	if width <= 0 || height <= 0 {
		return AspectSquare
	}
	target := float64(width) / float64(height)

	best := SupportedAspectRatios[0]
	bestDiff := math.Abs(best.Value() - target)
	for _, r := range SupportedAspectRatios[1:] {
		if d := math.Abs(r.Value() - target); d < bestDiff {
			best, bestDiff = r, d
		}
	}
	return best
}
