package recipe

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	recipeService "receitas-ai/internal/core/recipe"
)

// GenerateRequest POST /generate 的請求體；欄位保留原始 JSON 以便寬鬆轉型
type GenerateRequest struct {
	Ingredients  json.RawMessage `json:"ingredients"`
	Servings     json.RawMessage `json:"servings"`
	Restrictions json.RawMessage `json:"restrictions"`
	Cuisine      json.RawMessage `json:"cuisine"`
	Equipment    json.RawMessage `json:"equipment"`
	AllowExtras  json.RawMessage `json:"allowExtras"`
}

// toServiceRequest 轉為建議服務的請求
func (r *GenerateRequest) toServiceRequest(requestID string) recipeService.Request {
	return recipeService.Request{
		Ingredients:  strings.TrimSpace(textField(r.Ingredients)),
		Restrictions: strings.TrimSpace(textField(r.Restrictions)),
		Cuisine:      strings.TrimSpace(textField(r.Cuisine)),
		Equipment:    textField(r.Equipment),
		Servings:     servingsField(r.Servings),
		AllowExtras:  truthy(r.AllowExtras),
		RequestID:    requestID,
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// textField 字串原樣取出；數字與布林轉成文字；字串陣列以逗號串接；空值、false、0 視為空字串
func textField(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
		return "true"
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			switch s := item.(type) {
			case string:
				parts = append(parts, s)
			case float64:
				parts = append(parts, strconv.FormatFloat(s, 'f', -1, 64))
			}
		}
		return strings.Join(parts, ",")
	}
	return ""
}

// servingsField 份量：缺省或無法解析時為 2，數值向下取整後限制在 1 到 12
func servingsField(raw json.RawMessage) int {
	if isNull(raw) {
		return recipeService.DefaultServings
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return recipeService.DefaultServings
	}

	var n float64
	switch val := v.(type) {
	case float64:
		n = val
	case bool:
		if val {
			n = 1
		}
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			n = 0
			break
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return recipeService.DefaultServings
		}
		n = f
	default:
		return recipeService.DefaultServings
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return recipeService.DefaultServings
	}
	n = math.Floor(n)
	if n > recipeService.MaxServings {
		return recipeService.MaxServings
	}
	return recipeService.ClampServings(int(n))
}

// truthy 布林旗標的寬鬆判斷
func truthy(raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0 && !math.IsNaN(val)
	}
	return true
}
