package recipe

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"receitas-ai/internal/pkg/common"
)

// suggestionEnvelope 上游輸出的外層結構，suggestions 保留原始內容
type suggestionEnvelope struct {
	Suggestions json.RawMessage `json:"suggestions"`
}

// ParseSuggestions 解析上游輸出文字並清理前 3 筆建議
func ParseSuggestions(outputText string) ([]Suggestion, error) {
	content := strings.TrimSpace(outputText)

	var env suggestionEnvelope
	if err := common.ParseJSON(content, &env); err != nil {
		// 去除 markdown/fence：取第一個 { 到最後一個 }
		obj, ok := common.ExtractJSONObject(content)
		if !ok {
			return nil, fmt.Errorf("parse model output: %w", err)
		}
		if err := common.ParseJSON(obj, &env); err != nil {
			return nil, fmt.Errorf("parse model output: %w", err)
		}
	}

	var items []json.RawMessage
	if len(env.Suggestions) > 0 {
		// 非陣列視為空
		_ = json.Unmarshal(env.Suggestions, &items)
	}
	return SanitizeSuggestions(items), nil
}

// SanitizeSuggestions 清理多筆建議，只保留前 3 筆
func SanitizeSuggestions(raw []json.RawMessage) []Suggestion {
	if len(raw) > SuggestionCount {
		raw = raw[:SuggestionCount]
	}
	out := make([]Suggestion, 0, len(raw))
	for i, r := range raw {
		var v interface{}
		if err := common.ParseJSONBytes(r, &v); err != nil {
			v = nil
		}
		out = append(out, SanitizeSuggestion(v, i))
	}
	return out
}

// SanitizeSuggestion 將單筆上游資料轉成完整的建議，缺漏欄位套用預設值
func SanitizeSuggestion(raw interface{}, index int) Suggestion {
	obj, _ := raw.(map[string]interface{})
	n := index + 1

	s := Suggestion{
		ID:          fmt.Sprintf("ai_%d", n),
		Title:       fmt.Sprintf("Sugestão %d", n),
		Servings:    positiveInt(obj["servings"], DefaultServings),
		TimeMinutes: positiveInt(obj["timeMinutes"], DefaultTimeMinutes),
		Category:    DefaultCategory,
		Ingredients: stringList(obj["ingredients"]),
		Steps:       stringList(obj["steps"]),
		ExtraNeeded: stringList(obj["extraNeeded"]),
	}

	if id, ok := obj["id"].(string); ok && strings.TrimSpace(id) != "" {
		s.ID = strings.TrimSpace(id)
	}
	if title := scalarString(obj["title"]); title != "" {
		s.Title = title
	}
	if category := scalarString(obj["category"]); category != "" {
		s.Category = category
	}
	if len(s.Steps) > MaxSteps {
		s.Steps = s.Steps[:MaxSteps]
	}
	if notes, ok := obj["notes"].(string); ok && !strings.EqualFold(strings.TrimSpace(notes), "null") {
		s.Notes = notes
	}

	return s
}

// positiveInt 有限正數取整，其餘回傳預設值
func positiveInt(v interface{}, def int) int {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return def
		}
		f = parsed
	case float64:
		f = t
	case int:
		f = float64(t)
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return def
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if i := int(math.Floor(f)); i >= 1 {
		return i
	}
	return 1
}

// scalarString 字串、數字、布林轉為去除空白的字串
func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// stringList 只保留非空字串元素
func stringList(v interface{}) []string {
	out := []string{}
	items, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
