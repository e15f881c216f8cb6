package scripttools

import (
	"regexp"
	"strings"
)

// 模型返回的 JSON 经常混在 Markdown 或说明文字里，
// 这里按宽松程度递进做三级提取，而不是要求整段响应就是 JSON。

var (
	fencedArrayRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
	fencedObjectRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
)

// ExtractJSONArray 从模型响应中提取 JSON 数组文本
// 依次尝试：代码块内的数组 → 裸露的 [...] 片段 → 把散落的 {...} 对象拼成数组。
// 返回的字符串不保证可以成功反序列化，只保证形状上像数组。
func ExtractJSONArray(response string) (string, bool) {
	if m := fencedArrayRe.FindStringSubmatch(response); m != nil {
		return m[1], true
	}

	if span, ok := bracketSpan(response, '[', ']'); ok {
		return span, true
	}

	// 最后手段：模型逐个输出对象而没包数组
	objects := collectObjects(response)
	if len(objects) > 0 {
		return "[" + strings.Join(objects, ",") + "]", true
	}

	return "", false
}

// ExtractJSONObject 从模型响应中提取 JSON 对象文本
// 依次尝试：代码块内的对象 → 裸露的 {...} 片段。
func ExtractJSONObject(response string) (string, bool) {
	if m := fencedObjectRe.FindStringSubmatch(response); m != nil {
		return m[1], true
	}

	if span, ok := bracketSpan(response, '{', '}'); ok {
		return span, true
	}

	return "", false
}

// bracketSpan 找出第一个 open 到与之配平的 close 之间的片段
func bracketSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// collectObjects 依次收集响应里所有配平的顶层 {...} 片段
func collectObjects(s string) []string {
	var objects []string
	rest := s
	for {
		span, ok := bracketSpan(rest, '{', '}')
		if !ok {
			break
		}
		objects = append(objects, span)
		idx := strings.Index(rest, span)
		rest = rest[idx+len(span):]
	}
	return objects
}
