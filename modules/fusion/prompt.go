package fusion

import (
	"strings"

	"face-fusion-server/modules/common/model"
)

// referenceLabel - 역할별 라벨과 합성 지시문
type referenceLabel struct {
	analysis    string // 분석 요청용 라벨
	composite   string // 합성 요청용 라벨
	instruction string // 합성 요청용 역할 지시문
}

var referenceLabels = map[model.AssetRole]referenceLabel{
	model.RoleStyle: {
		analysis:    "TARGET STYLE / ENVIRONMENT",
		composite:   "STYLE_REFERENCE",
		instruction: "Use this for background and lighting.",
	},
	model.RoleClothing: {
		analysis:    "CLOTHING TO WEAR",
		composite:   "CLOTHING_REFERENCE",
		instruction: "Use this for the main outfit. Copy the exact design.",
	},
	model.RoleShoes: {
		analysis:    "SHOES TO WEAR",
		composite:   "SHOES_REFERENCE",
		instruction: "Use this for footwear. Copy the exact design.",
	},
	model.RoleAccessories: {
		analysis:    "ACCESSORIES",
		composite:   "ACCESSORIES_REFERENCE",
		instruction: "Include these accessories.",
	},
	model.RoleHairstyle: {
		analysis:    "HAIRSTYLE",
		composite:   "HAIRSTYLE_REFERENCE",
		instruction: "Use this hairstyle.",
	},
}

const faceReferenceLabel = "Reference 1: [FACE_REFERENCE] - Use this for facial identity."

// languageInstruction - 분석 결과 출력 언어
func languageInstruction(lang model.Language) string {
	if lang == model.LanguageRussian {
		return "Output the final detailed description strictly in Russian."
	}
	return "Output the final detailed description in English."
}

// AnalysisInstruction - 분석 요청의 고정 지시문
func AnalysisInstruction(lang model.Language) string {
	return "You are a Lead Visual Director for a high-end fashion shoot.\n" +
		"Your task is to analyze the provided reference images and combine them into a SINGLE, cohesive visual description for a generative AI model.\n\n" +
		"I will provide images labeled by their category (e.g., Clothing, Shoes, Style, Hairstyle).\n" +
		"You must merge these elements into a scene description.\n\n" +
		"**Directives:**\n" +
		"1. If 'Style/Background' is provided, describe the lighting, location, and camera angle in detail.\n" +
		"2. If 'Clothing' or 'Shoes' are provided, describe their fabric, cut, color, and how they fit on a model.\n" +
		"3. If 'Hairstyle' is provided, describe the hair texture and cut.\n" +
		"4. If 'Accessories' are provided, include them naturally.\n\n" +
		languageInstruction(lang) + "\n\n" +
		"**Output Format:**\n" +
		"Return ONLY the descriptive paragraph. Do not add intro/outro text."
}

// AnalysisLabel - "[REFERENCE IMAGE: ...]" 세그먼트
func AnalysisLabel(role model.AssetRole) string {
	return "\n[REFERENCE IMAGE: " + referenceLabels[role].analysis + "]"
}

// CompositeLabel - 합성 요청의 역할 라벨 세그먼트
func CompositeLabel(role model.AssetRole) string {
	if role == model.RoleFace {
		return faceReferenceLabel
	}
	l := referenceLabels[role]
	return "Reference: [" + l.composite + "] - " + l.instruction
}

// CompositeInstruction - 합성 요청의 지시문 (장면 설명은 그대로 삽입)
func CompositeInstruction(sceneDescription string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert CGI Artist and Photographer.\n")
	sb.WriteString("Task: Create a photorealistic composite image based on the provided references.\n\n")

	sb.WriteString("**CORE INSTRUCTION**:\n")
	sb.WriteString("Synthesize a single image that combines the anatomical features of the [FACE_REFERENCE] with the aesthetic elements of the other references.\n\n")

	sb.WriteString("**STRICT ASSET MAPPING**:\n")
	sb.WriteString("1. **FACE / IDENTITY**: The generated person MUST have the facial structure, ethnicity, and key features of [FACE_REFERENCE]. This is the most critical requirement.\n")
	sb.WriteString("2. **OUTFIT**: The person MUST be wearing the exact items shown in [CLOTHING_REFERENCE], [SHOES_REFERENCE] and [ACCESSORIES_REFERENCE]. Maintain fabric texture and details.\n")
	sb.WriteString("3. **SCENE**: The background, lighting, and mood must match [STYLE_REFERENCE].\n")
	sb.WriteString("4. **HAIR**: If [HAIRSTYLE_REFERENCE] is provided, adapt that hair onto the subject.\n\n")

	sb.WriteString("**SCENE DESCRIPTION**:\n")
	sb.WriteString("\"" + sceneDescription + "\"\n\n")

	sb.WriteString("**TECHNICAL PARAMETERS**:\n")
	sb.WriteString("- Style: Photorealistic, 8k resolution, cinematic lighting.\n")
	sb.WriteString("- Shot: Medium shot or Full body (depending on visible clothing).\n")
	sb.WriteString("- Integrity: Ensure the face blends naturally with the neck and lighting of the scene.")

	return sb.String()
}
