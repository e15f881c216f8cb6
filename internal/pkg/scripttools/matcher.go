package scripttools

import (
	"strings"

	"yuja/internal/model/novel"
)

// NormalizeCastingHints 整理场景切分结果里的出场角色字段
// 模型有时给字符串（"민수, 지영" / "민수와 지영"），有时给列表，
// 这里统一成去重后的姓名切片，保持出现顺序。
func NormalizeCastingHints(raw any) []string {
	var names []string

	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		names = splitHintString(v)
	case []string:
		names = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	default:
		return nil
	}

	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	return result
}

// 字符串形式的出场角色常见分隔符
var hintSeparators = []string{",", "、", "，", "/", " 및 ", "와 ", "과 ", " and "}

func splitHintString(s string) []string {
	parts := []string{s}
	for _, sep := range hintSeparators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	return parts
}

// MatchCharacters 按场景文本匹配出场角色
// 逐个角色做三项判定（逻辑或，任一命中即入选）：
//  1. 切分结果自带的出场角色提示
//  2. 台词文本
//  3. 지문（叙述）文本
//
// 全部是姓名的精确子串匹配，不做分词或别名归并；
// 返回命中角色的 ID，顺序跟随 characters 的传入顺序，每个角色至多出现一次。
func MatchCharacters(characters []*novel.Character, hints []string, dialogue, narration string) []string {
	var ids []string
	for _, c := range characters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}

		if matchesAnyHint(name, hints) {
			ids = append(ids, c.ID)
			continue
		}
		if dialogue != "" && strings.Contains(dialogue, name) {
			ids = append(ids, c.ID)
			continue
		}
		if narration != "" && strings.Contains(narration, name) {
			ids = append(ids, c.ID)
			continue
		}
	}
	return ids
}

func matchesAnyHint(name string, hints []string) bool {
	for _, hint := range hints {
		if strings.Contains(hint, name) {
			return true
		}
	}
	return false
}
