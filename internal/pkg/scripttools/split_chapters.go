package scripttools

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ChapterSegment 章节切分结果
// 只是纯文本切片，不带持久化身份；入库由服务层负责。
type ChapterSegment struct {
	Number  int    // 章节号，取自标记行
	Title   string // 标题，标记行未给出时回退为 "N장"
	Content string // 标记行之后到下一个标记行之前的正文
}

// 章节标记行：#1장 제목 / # 제2장 / #003장 ...
// "제" 前缀可选，标题可空。
var chapterMarkerRe = regexp.MustCompile(`(?i)^#\s*(?:제\s*)?(\d+)\s*장\s*(.*)$`)

// SplitChapters 按标记行切分剧本
// 逐行扫描：匹配到标记行就开启新章节，后续行累积为正文；
// 第一个标记行之前的内容没有归属，直接丢弃。
// 结果按章节号升序返回；重复的章节号都保留，顺序稳定。
func SplitChapters(script string) []ChapterSegment {
	if strings.TrimSpace(script) == "" {
		return nil
	}

	var (
		segments []ChapterSegment
		current  *ChapterSegment
		body     []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		segments = append(segments, *current)
		current = nil
		body = nil
	}

	for _, line := range strings.Split(script, "\n") {
		m := chapterMarkerRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			if current != nil {
				body = append(body, line)
			}
			continue
		}

		flush()

		number, err := strconv.Atoi(m[1])
		if err != nil {
			// \d+ 已保证是数字，这里只可能是超界
			continue
		}

		title := strings.TrimSpace(m[2])
		if title == "" {
			title = fmt.Sprintf("%d장", number)
		}

		current = &ChapterSegment{Number: number, Title: title}
	}
	flush()

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Number < segments[j].Number
	})

	return segments
}
