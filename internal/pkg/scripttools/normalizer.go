package scripttools

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer 剧本预处理器
// 提供一组纯文本整理操作，全部尽量幂等：
// 已经整理过的输入再跑一遍不应产生变化。
type Normalizer struct{}

// NewNormalizer 创建剧本预处理器实例
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

var (
	multiSpaceRe    = regexp.MustCompile(` +`)
	multiNewlineRe  = regexp.MustCompile(`\n{3,}`)
	spaceAfterNLRe  = regexp.MustCompile(`\n +`)
	spaceBeforeNLRe = regexp.MustCompile(` +\n`)

	// 章节/场景标记行（제1장、1장、장면1、Scene 1 等）
	markerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)제\s*\d+\s*장`),
		regexp.MustCompile(`(?i)\d+\s*장`),
		regexp.MustCompile(`(?i)장면\s*\d+`),
		regexp.MustCompile(`(?i)scene\s*\d+`),
	}

	// 台词行：화자 + 冒号（半角或全角）+ 内容
	dialogueRe = regexp.MustCompile(`^([가-힣a-zA-Z0-9\s]+)\s*[:：]\s*(.+)$`)
)

// NormalizeWhitespace 整理空格与换行
// 连续空格压成一个，每行去掉首尾空白（空行保留），三个以上连续换行压成两个。
// 先去行内空白再压换行：只含空格的行先变成空行，才能参与同一遍的压缩。
func (n *Normalizer) NormalizeWhitespace(script string) string {
	if script == "" {
		return script
	}

	script = multiSpaceRe.ReplaceAllString(script, " ")

	lines := strings.Split(script, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	script = multiNewlineRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	return strings.TrimSpace(script)
}

// RemoveDuplicateNewlines 删除所有空行
// 与 NormalizeWhitespace 不同：这里会抹掉段落分隔，
// 非空行去掉首尾空白后用单个换行重新连接。
func (n *Normalizer) RemoveDuplicateNewlines(script string) string {
	if script == "" {
		return script
	}

	lines := strings.Split(script, "\n")
	nonEmpty := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			nonEmpty = append(nonEmpty, trimmed)
		}
	}

	return strings.Join(nonEmpty, "\n")
}

// NormalizeParagraphs 整理段落分隔
// 在章节/场景标记行前后各插入一个空行，过程中产生的连续空行压成一个。
func (n *Normalizer) NormalizeParagraphs(script string) string {
	if script == "" {
		return script
	}

	lines := strings.Split(script, "\n")
	processed := make([]string, 0, len(lines))

	appendBlank := func() {
		if len(processed) > 0 && processed[len(processed)-1] != "" {
			processed = append(processed, "")
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" {
			// 连续空行压成一个
			if len(processed) == 0 || processed[len(processed)-1] != "" {
				processed = append(processed, "")
			}
			continue
		}

		if isMarkerLine(line) {
			appendBlank()
			processed = append(processed, line)
			processed = append(processed, "")
			continue
		}

		processed = append(processed, line)
	}

	return strings.Join(processed, "\n")
}

func isMarkerLine(line string) bool {
	for _, re := range markerPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// maxSpeakerLen 화자 이름의 최대 길이
// 超过它的"화자"大概率是包含冒号的叙述文，不按台词处理。
const maxSpeakerLen = 10

// NormalizeDialogue 标准化台词行
// "이름 : 대사" / "이름： 대사" 统一改写为 "이름: 대사"，
// 其余行（包括화자超长的伪台词行）原样保留。
func (n *Normalizer) NormalizeDialogue(script string) string {
	if script == "" {
		return script
	}

	lines := strings.Split(script, "\n")
	processed := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			processed = append(processed, "")
			continue
		}

		m := dialogueRe.FindStringSubmatch(line)
		if m != nil {
			speaker := strings.TrimSpace(m[1])
			text := strings.TrimSpace(m[2])
			if len([]rune(speaker)) <= maxSpeakerLen && text != "" {
				processed = append(processed, speaker+": "+text)
				continue
			}
		}

		processed = append(processed, line)
	}

	return strings.Join(processed, "\n")
}

// 清理特殊字符时保留的标点
const keptPunctuation = ".!?'`,()[]{}\"：:;-“”‘’"

// RemoveSpecialCharacters 删除多余特殊字符
// 保留字母数字（含韩文音节/字母）、空白和允许的标点，其余丢弃，
// 再清理残留的连续空格和换行两侧的空格。
func (n *Normalizer) RemoveSpecialCharacters(script string) string {
	if script == "" {
		return script
	}

	var b strings.Builder
	b.Grow(len(script))

	for _, r := range script {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(keptPunctuation, r):
			b.WriteRune(r)
		}
	}

	result := multiSpaceRe.ReplaceAllString(b.String(), " ")
	result = spaceAfterNLRe.ReplaceAllString(result, "\n")
	result = spaceBeforeNLRe.ReplaceAllString(result, "\n")

	return result
}
