package session

import "face-fusion-server/modules/common/model"

// StatusKey - 현재 진행 상태 메시지 키 (언어에 따라 렌더링)
type StatusKey string

const (
	StatusIdle           StatusKey = "statusIdle"
	StatusReadyToAnalyze StatusKey = "statusReadyToAnalyze"
	StatusReadyToRender  StatusKey = "statusReadyToRender"
	StatusAnalyzing      StatusKey = "statusAnalyzing"
	StatusAnalyzed       StatusKey = "statusAnalyzed"
	StatusRendering      StatusKey = "statusRendering"
	StatusSuccess        StatusKey = "statusSuccess"
	StatusSystem         StatusKey = "systemStatus"

	errorAnalyze StatusKey = "errorAnalyze"
	errorRender  StatusKey = "errorRender"
)

var translations = map[model.Language]map[StatusKey]string{
	model.LanguageEnglish: {
		StatusIdle:           "Upload your face and at least one asset to begin.",
		StatusReadyToAnalyze: "Assets loaded. Click 'Analyze Inputs' to prepare the prompt.",
		StatusReadyToRender:  "Prompt ready. Click 'Generate Composition' to render.",
		StatusAnalyzing:      "Gemini is analyzing all your inputs to build a master prompt...",
		StatusAnalyzed:       "Analysis complete. You can tweak the prompt below.",
		StatusRendering:      "Gemini is fusing your identity into the composed scene...",
		StatusSuccess:        "Composition generated successfully!",
		StatusSystem:         "SYSTEM STATUS",
		errorAnalyze:         "Failed to analyze assets.",
		errorRender:          "Failed to generate composition.",
	},
	model.LanguageRussian: {
		StatusIdle:           "Загрузите фото лица и хотя бы один элемент стиля.",
		StatusReadyToAnalyze: "Ресурсы загружены. Нажмите «Анализ», чтобы составить план.",
		StatusReadyToRender:  "План готов. Нажмите «Генерация», чтобы создать изображение.",
		StatusAnalyzing:      "Gemini анализирует все входные данные для составления промпта...",
		StatusAnalyzed:       "Анализ завершен. Вы можете поправить описание ниже.",
		StatusRendering:      "Gemini внедряет вашу личность в созданную сцену...",
		StatusSuccess:        "Композиция успешно создана!",
		StatusSystem:         "СТАТУС СИСТЕМЫ",
		errorAnalyze:         "Ошибка анализа ресурсов.",
		errorRender:          "Ошибка генерации изображения.",
	},
}

var assetLabels = map[model.Language]map[model.AssetRole]string{
	model.LanguageEnglish: {
		model.RoleFace:        "YOUR FACE (Identity)",
		model.RoleClothing:    "Clothing",
		model.RoleShoes:       "Shoes / Footwear",
		model.RoleAccessories: "Accessories",
		model.RoleHairstyle:   "Hairstyle",
		model.RoleStyle:       "Style / Background",
	},
	model.LanguageRussian: {
		model.RoleFace:        "ВАШЕ ЛИЦО (Обязательно)",
		model.RoleClothing:    "Одежда",
		model.RoleShoes:       "Обувь",
		model.RoleAccessories: "Аксессуары",
		model.RoleHairstyle:   "Прическа",
		model.RoleStyle:       "Стилистика / Фон",
	},
}

// Translate - 키를 언어별 문장으로 (없으면 영어)
func Translate(lang model.Language, key StatusKey) string {
	if msg, ok := translations[lang][key]; ok {
		return msg
	}
	return translations[model.LanguageEnglish][key]
}

// AssetLabel - 역할 표시 이름
func AssetLabel(lang model.Language, role model.AssetRole) string {
	if label, ok := assetLabels[lang][role]; ok {
		return label
	}
	return assetLabels[model.LanguageEnglish][role]
}
