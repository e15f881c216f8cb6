package scripttools

import (
	"fmt"
	"strings"

	"yuja/internal/model/novel"
)

// 本文件集中维护发给文本模型/图片模型的全部提示词模板。
// 模板面向韩语剧本，输出约束（JSON 形状）写死在模板里，
// 解析端（json_extractor）与这里的约束一一对应。

// MaxScriptPromptLen 单次嵌入提示词的剧本长度上限（字符数）
const MaxScriptPromptLen = 15000

// OptimizeScriptLength 压缩过长的剧本
// 先删空行、压缩连续空格；仍超限则截断到上限。
// 第二个返回值表示是否发生了截断，调用方必须对截断给出警告。
func OptimizeScriptLength(script string) (string, bool) {
	if len([]rune(script)) <= MaxScriptPromptLen {
		return script, false
	}

	lines := strings.Split(script, "\n")
	nonEmpty := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}

	optimized := multiSpaceRe.ReplaceAllString(strings.Join(nonEmpty, "\n"), " ")

	runes := []rune(optimized)
	if len(runes) <= MaxScriptPromptLen {
		return optimized, false
	}

	return string(runes[:MaxScriptPromptLen]), true
}

// CharacterExtractionPrompt 构造角色提取提示词
// 要求模型返回仅含 name/description 两个 key 的 JSON 数组。
func CharacterExtractionPrompt(script string) string {
	return fmt.Sprintf(`다음은 유튜브 소설의 전체 대본입니다. 이 대본을 읽고 주요 등장인물들을 모두 추출해주세요.

[대본 시작]
%s
[대본 끝]

각 등장인물에 대해 다음 작업을 수행해주세요:
1. 인물의 이름을 식별합니다.
2. 대본에 묘사된 외모, 나이, 성격, 의상 등의 특징을 모두 종합하여 상세한 '외모 및 특징 묘사'를 작성합니다.
3. 이 묘사는 나중에 AI 이미지 생성 모델이 인물의 이미지를 그리는 데 사용될 것이므로, 매우 구체적이고 시각적이어야 합니다.

결과를 반드시 다음 JSON 배열(Array) 형식으로 반환해야 합니다. 각 인물 객체는 "name"과 "description" 키를 가져야 합니다.

JSON 출력 예시:
[
  {
    "name": "박서준",
    "description": "20대 후반의 남자. 날카로운 턱선과 깊은 눈매를 가졌다. 항상 검은색 터틀넥과 긴 코트를 입고 다니며, 차가운 도시의 분위기를 풍긴다."
  },
  {
    "name": "이하나",
    "description": "20대 중반의 여자. 밝은 갈색의 긴 생머리를 가지고 있으며, 큰 눈망울이 인상적이다. 따뜻한 미소를 짓고 있으며, 파스텔 톤의 니트와 청바지를 즐겨 입는다."
  }
]

반드시 유효한 JSON 형식으로만 응답해주세요.`, script)
}

// SceneSplitPrompt 构造场景切分提示词
// 调用方先用 OptimizeScriptLength 处理剧本后再传入。
func SceneSplitPrompt(script string) string {
	return fmt.Sprintf(`다음 대본을 장면별로 분리하여 JSON 배열로 반환하세요.

대본:
%s

각 장면은 다음 형식으로 작성:
[{"title":"장면제목", "narration":"지문", "dialogue":"대사", "casting":["인물1","인물2"], "storyboard":"구도설명", "mise_en_scene":"분위기"}]

빈 필드는 ""로 처리. JSON만 반환하세요.`, script)
}

// ScenePromptRequest 构造结构化图片提示词的生成请求
// 把场景字段和出场角色设定嵌入，要求按固定六个 key 返回 JSON 对象。
func ScenePromptRequest(scene *novel.Scene, characters []*novel.Character) string {
	characterInfo := "없음"
	if len(characters) > 0 {
		descriptions := make([]string, 0, len(characters))
		for _, c := range characters {
			descriptions = append(descriptions, fmt.Sprintf("- %s: %s", c.Name, c.Description))
		}
		characterInfo = strings.Join(descriptions, "\n")
	}

	return fmt.Sprintf(`### 지시
당신은 제공된 장면과 인물 정보를 바탕으로 이미지 생성 프롬프트를 만드는 AI입니다.
각 항목에 대해 가장 핵심적인 키워드와 구문 위주로 간결하게 묘사하세요.
결과는 반드시 아래 JSON 형식으로만 반환해야 합니다.

### 장면 정보
- **제목**: %s
- **상황/지문**: %s
- **구도/미장센**: %s, %s
- **대사**: %s

### 등장인물 정보
%s

### 출력 형식 (JSON)
`+"```json"+`
{
  "characters": "인물의 외모, 표정, 행동을 핵심만 묘사. (예: 피곤한 표정의 20대 남성, 카운터에 기댐)",
  "background": "배경과 핵심 소품을 간결하게 묘사. (예: 늦은 밤 편의점 내부, 가지런히 정리된 선반)",
  "angle_and_composition": "카메라 앵글과 구도. (예: 미디엄 샷, 카운터 너머에서 촬영)",
  "lighting_and_color": "조명과 색감. (예: 차가운 형광등, 푸른 톤)",
  "mood_and_atmosphere": "장면의 분위기. (예: 조용함, 정적, 외로움)",
  "style": "하이퍼리얼리즘, 시네마틱, 필름 그레인, 4k, 사실적 묘사, 16:9 비율"
}
`+"```", scene.Title, orDefault(scene.Narration, "없음"),
		scene.Storyboard, scene.MiseEnScene,
		orDefault(scene.Dialogue, "없음"), characterInfo)
}

// CharacterImagePrompt 构造角色参考图的生成提示词
// 纯模板拼接，不经过文本模型，永远成功。
func CharacterImagePrompt(c *novel.Character) string {
	return strings.TrimSpace(fmt.Sprintf(`
유튜브 소설에 사용할 등장인물의 레퍼런스 이미지를 생성해줘. 이 프롬프트에 대한 응답으로 이미지를 생성해야 해.
- 인물: 한국인
- 배경: 단색의 깔끔한 배경 (흰색 또는 회색)
- 구도: 상반신이 잘 보이는 정면 또는 약간 측면의 인물 사진 (Bust shot), 사진은 1컷만 생성
- 스타일: 스튜디오 조명, 하이퍼리얼리즘, 4k, 고화질
- 인물 상세 묘사: %s
`, c.Description))
}

// DefaultScenePrompt 结构化提示词的兜底模板
// 只用场景自身字段拼装，六个 key 全部有值，任何情况下都不失败。
func DefaultScenePrompt(scene *novel.Scene, characterNames []string) map[string]string {
	names := "없음"
	if len(characterNames) > 0 {
		names = strings.Join(characterNames, ", ")
	}

	return map[string]string{
		novel.PromptKeyCharacters:  strings.TrimSpace(fmt.Sprintf("등장인물: %s. %s", names, scene.Dialogue)),
		novel.PromptKeyBackground:  orDefault(scene.Narration, "장면에 대한 배경 설명"),
		novel.PromptKeyComposition: "미디엄 샷",
		novel.PromptKeyLighting:    "자연광",
		novel.PromptKeyMood:        orDefault(scene.MiseEnScene, "장면의 분위기"),
		novel.PromptKeyStyle:       "하이퍼리얼리즘, 시네마틱, 4k, 사실적 묘사, 16:9 비율",
	}
}

// FlattenScenePrompt 把结构化提示词压成一行文本
// 按固定组件顺序拼接，保证同一映射永远得到同一文本。
func FlattenScenePrompt(prompt map[string]string) string {
	parts := make([]string, 0, len(novel.PromptComponentKeys))
	for _, key := range novel.PromptComponentKeys {
		if v := strings.TrimSpace(prompt[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
