package recipe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	combiningMarks = &unicode.RangeTable{
		R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
	}

	digitPattern       = regexp.MustCompile(`[0-9]`)
	punctuationPattern = regexp.MustCompile(`[()\[\]{}.,;:/\\\-_]`)
	unitPattern        = regexp.MustCompile(`\b(kg|g|grama|gramas|ml|l|litro|litros|xicara|xicaras|colher|colheres|sopa|cha|teaspoon|tablespoon)\b`)
	separatorPattern   = regexp.MustCompile(`[\n,;]+`)

	rarePattern   = regexp.MustCompile(`mal passad|malpassad`)
	mediumPattern = regexp.MustCompile(`ao ponto|aoponto`)
	wellPattern   = regexp.MustCompile(`bem passad|bempassad`)
)

// stripAccents NFD 分解後移除 U+0300 到 U+036F
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(combiningMarks)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeKey 產生食材比對用的鍵值
func NormalizeKey(s string) string {
	k := strings.ToLower(s)
	k = stripAccents(k)
	k = digitPattern.ReplaceAllString(k, " ")
	k = punctuationPattern.ReplaceAllString(k, " ")
	k = unitPattern.ReplaceAllString(k, " ")
	return strings.Join(strings.Fields(k), " ")
}

// detectDoneness 判斷是否為熟度描述
func detectDoneness(key string) Doneness {
	switch {
	case rarePattern.MatchString(key):
		return DonenessRare
	case mediumPattern.MatchString(key):
		return DonenessMedium
	case wellPattern.MatchString(key):
		return DonenessWell
	}
	return DonenessNone
}

// ParseUserInput 拆解使用者輸入的食材清單
func ParseUserInput(raw string) ParsedInput {
	var parsed ParsedInput

	for _, piece := range separatorPattern.Split(raw, -1) {
		line := strings.TrimSpace(piece)
		if line == "" {
			continue
		}
		key := NormalizeKey(line)
		if d := detectDoneness(key); d != DonenessNone {
			parsed.Doneness = d
			continue
		}
		parsed.AllowedLines = append(parsed.AllowedLines, line)
		if key != "" {
			parsed.AllowedKeys = append(parsed.AllowedKeys, key)
		}
	}

	if len(parsed.AllowedLines) == 0 {
		parsed.AllowedLines = []string{strings.TrimSpace(raw)}
	}
	if len(parsed.AllowedKeys) == 0 {
		parsed.AllowedKeys = []string{NormalizeKey(raw)}
	}

	return parsed
}
