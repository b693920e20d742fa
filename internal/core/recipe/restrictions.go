package recipe

import (
	"regexp"
	"strings"
)

// RestrictionRule 飲食限制規則
type RestrictionRule struct {
	Tag      string
	Regex    *regexp.Regexp
	Guidance string
	Health   bool
}

// DefaultRestrictionRules 內建規則，依序比對
func DefaultRestrictionRules() []RestrictionRule {
	return []RestrictionRule{
		{
			Tag:      "sem_gluten",
			Regex:    regexp.MustCompile(`(?i)(sem gl[uú]ten|gluten|cel[ií]ac)`),
			Guidance: "Evitar farinha de trigo e derivados. Preferir arroz, milho, mandioca e tapioca.",
		},
		{
			Tag:      "sem_lactose",
			Regex:    regexp.MustCompile(`(?i)(lactose|sem lactose|intoler[aâ]ncia)`),
			Guidance: "Evitar leite/queijos comuns. Preferir versões sem lactose ou alternativas vegetais.",
		},
		{
			Tag:      "vegano",
			Regex:    regexp.MustCompile(`(?i)(vegano|vegan)`),
			Guidance: "Não usar ingredientes de origem animal. Trocar ovos por substitutos quando fizer sentido.",
		},
		{
			Tag:      "vegetariano",
			Regex:    regexp.MustCompile(`(?i)(vegetar)`),
			Guidance: "Evitar carne. Priorizar proteína vegetal e ovos/laticínios se permitido.",
		},
		{
			Tag:      "diabetes",
			Regex:    regexp.MustCompile(`(?i)(diabet|glicem|a[cç]ucar)`),
			Guidance: "Sem açúcar adicionado; mais fibras e proteína; evitar excesso de carbo simples.",
			Health:   true,
		},
		{
			Tag:      "pressao_alta",
			Regex:    regexp.MustCompile(`(?i)(press[aã]o alta|hipertens|s[oó]dio)`),
			Guidance: "Reduzir sal/embutidos/caldo pronto. Usar ervas e limão com moderação.",
			Health:   true,
		},
		{
			Tag:      "gastrite_refluxo",
			Regex:    regexp.MustCompile(`(?i)(gastrite|reflux|azia)`),
			Guidance: "Preferir preparo leve. Evitar fritura pesada e pimenta forte.",
			Health:   true,
		},
		{
			Tag:      "colesterol",
			Regex:    regexp.MustCompile(`(?i)(colesterol|triglicer)`),
			Guidance: "Evitar fritura pesada. Preferir assado/grelhado e azeite com moderação.",
			Health:   true,
		},
	}
}

var restrictionRules = DefaultRestrictionRules()

// AnalyzeRestrictions 分析飲食與健康限制
func AnalyzeRestrictions(raw string) RestrictionHints {
	return analyzeWith(restrictionRules, raw)
}

func analyzeWith(rules []RestrictionRule, raw string) RestrictionHints {
	text := strings.ToLower(raw)
	hints := RestrictionHints{}
	seen := make(map[string]bool, len(rules))

	for _, rule := range rules {
		if !rule.Regex.MatchString(text) {
			continue
		}
		if !seen[rule.Tag] {
			seen[rule.Tag] = true
			hints.Tags = append(hints.Tags, rule.Tag)
		}
		hints.Guidance = append(hints.Guidance, rule.Guidance)
		if rule.Health {
			hints.HasHealth = true
		}
	}

	return hints
}
