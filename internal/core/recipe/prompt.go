package recipe

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	airFryerPattern = regexp.MustCompile(`(?i)(air\s*fryer|airfryer)`)
	ovenPattern     = regexp.MustCompile(`(?i)(forno|assad)`)
	stovePattern    = regexp.MustCompile(`(?i)(fog[aã]o|panela|frigideira|boca)`)
	anyPattern      = regexp.MustCompile(`(?i)(qualquer|tanto\s*faz)`)
)

// SchemaName 輸出 schema 名稱
const SchemaName = "recipe_suggestions"

const strictNudgePrefix = "Você QUEBROU as regras no modo estrito. Refaça. Violações detectadas:\n"

// NormalizeEquipment 從設備與料理風格文字判斷設備
func NormalizeEquipment(equipment, cuisine string) Equipment {
	text := strings.ToLower(strings.TrimSpace(equipment)) + " " + strings.ToLower(strings.TrimSpace(cuisine))

	switch {
	case airFryerPattern.MatchString(text):
		return EquipmentAirFryer
	case ovenPattern.MatchString(text):
		return EquipmentOven
	case stovePattern.MatchString(text):
		return EquipmentStove
	case anyPattern.MatchString(text):
		return EquipmentAny
	}
	return EquipmentAny
}

func equipmentGuide(e Equipment) string {
	switch e {
	case EquipmentAirFryer:
		return "Equipamento: AIR FRYER. Inclua tempo e temperatura (ex: 180–200°C). Evite muito molho; se usar, em recipiente."
	case EquipmentOven:
		return "Equipamento: FORNO. Inclua pré-aquecimento quando fizer sentido e temperatura/tempo (ex: 180°C)."
	case EquipmentStove:
		return "Equipamento: FOGÃO. Indique fogo baixo/médio/alto quando ajudar."
	}
	return "Equipamento: LIVRE (qualquer)."
}

func donenessGuide(d Doneness) string {
	switch d {
	case DonenessRare:
		return "Preferência de ponto: MAL PASSADA. Priorize selagem rápida + descanso. Referência: ~52–54°C (se citar temperatura interna)."
	case DonenessMedium:
		return "Preferência de ponto: AO PONTO. Selagem + tempo moderado. Referência: ~57–60°C (se citar temperatura interna)."
	case DonenessWell:
		return "Preferência de ponto: BEM PASSADA. Tempo maior e fogo mais controlado. Referência: ~65°C+ (se citar temperatura interna)."
	}
	return ""
}

func disclaimerLine(hints RestrictionHints) string {
	if hints.HasHealth {
		return "Aviso curto obrigatório em notes: 'Sugestão geral, não substitui orientação profissional.'"
	}
	return "Se não houver observação importante, notes deve ser string vazia."
}

func healthGuide(hints RestrictionHints) string {
	if len(hints.Guidance) == 0 {
		return ""
	}
	return "Ajustes por restrições: " + strings.Join(hints.Guidance, " ")
}

func modeRule(allowExtras bool, allowedLines []string) string {
	if !allowExtras {
		return strings.Join([]string{
			"MODO ESTRITO (permitir extras = DESLIGADO):",
			"- Você SÓ pode usar os ingredientes citados pelo usuário. Lista permitida: " + strings.Join(allowedLines, " | "),
			"- É PROIBIDO adicionar ingredientes extras comestíveis (ex: alho, cebola, pimenta, chimichurri, vinagre, limão, ervas, manteiga, azeite, óleo, açúcar, etc).",
			"- extraNeeded deve ser SEMPRE um array vazio: [].",
			"- A lista 'ingredients' deve conter APENAS itens compatíveis com a lista permitida (com quantidades).",
			"- As 3 sugestões devem ser diferentes por TÉCNICA (fogo direto/indireto, descanso, selagem, reverse sear, espessura/corte), NÃO por molho/tempero extra.",
			"- Se ficar minimalista demais, escreva em notes: 'Modo estrito: ative Permitir extras para versões mais completas.'",
		}, "\n")
	}
	return strings.Join([]string{
		"MODO LIVRE (permitir extras = LIGADO):",
		"- Use os ingredientes do usuário como base.",
		"- Você PODE adicionar ingredientes extras, mas limite a no máximo 6 extras por receita.",
		"- Coloque os extras também em 'extraNeeded' (somente os extras, sem repetir os ingredientes do usuário).",
		"- As 3 sugestões devem ser diferentes (técnica + variação de preparo), não só trocar o nome.",
	}, "\n")
}

// StrictNudge 重新生成時附加的違規提示，最多列出 8 筆
func StrictNudge(violations []string) string {
	if len(violations) > maxNudgeViolations {
		violations = violations[:maxNudgeViolations]
	}
	return strictNudgePrefix + strings.Join(violations, "\n")
}

// BuildPrompt 組裝系統指令與使用者訊息
func BuildPrompt(req Request, parsed ParsedInput, hints RestrictionHints, nudge string) Prompt {
	lines := []string{
		"Você é um chef prático e cuidadoso. Responda SOMENTE em JSON seguindo o schema.",
		"Gere exatamente 3 sugestões bem diferentes.",
		"REGRAS FIXAS:",
		"1) Ingredientes com quantidades aproximadas (ex: '1 kg de picanha').",
		"2) Passos completos: 6 a 12 passos. Cada passo com ação + tempo e/ou temperatura e/ou nível de fogo.",
		"3) Adapte ao equipamento (forno/air fryer/fogão) com tempo/temperatura/fogo.",
		"4) Respeite restrições (sem prometer cura; orientação geral).",
		"5) notes deve ser string (nunca 'null'). PT-BR.",
		disclaimerLine(hints),
		equipmentGuide(NormalizeEquipment(req.Equipment, req.Cuisine)),
		healthGuide(hints),
		donenessGuide(parsed.Doneness),
		modeRule(req.AllowExtras, parsed.AllowedLines),
		nudge,
	}

	system := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			system = append(system, l)
		}
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Ingredientes (do usuário): %s\n", strings.TrimSpace(req.Ingredients))
	fmt.Fprintf(&user, "Porções desejadas: %d\n", req.Servings)
	if r := strings.TrimSpace(req.Restrictions); r != "" {
		fmt.Fprintf(&user, "Restrições/saúde/dieta: %s\n", r)
	}
	if c := strings.TrimSpace(req.Cuisine); c != "" {
		fmt.Fprintf(&user, "Equipamento/estilo: %s\n", c)
	}
	extras := "nao"
	if req.AllowExtras {
		extras = "sim"
	}
	fmt.Fprintf(&user, "permitir extras: %s\n", extras)
	user.WriteString("Crie 3 receitas com preparo completo.")

	return Prompt{
		System: strings.Join(system, "\n"),
		User:   user.String(),
	}
}

// ResponseSchema 回傳嚴格的 JSON schema
func ResponseSchema() map[string]interface{} {
	str := map[string]interface{}{"type": "string"}
	strArray := func(extra map[string]interface{}) map[string]interface{} {
		m := map[string]interface{}{"type": "array", "items": str}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}

	item := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"id":          str,
			"title":       str,
			"servings":    map[string]interface{}{"type": "integer", "minimum": 1},
			"timeMinutes": map[string]interface{}{"type": "integer", "minimum": 1},
			"category":    str,
			"ingredients": strArray(map[string]interface{}{"minItems": 1}),
			"steps":       strArray(map[string]interface{}{"minItems": 6, "maxItems": MaxSteps}),
			"extraNeeded": strArray(nil),
			"notes":       str,
		},
		"required": []string{"id", "title", "servings", "timeMinutes", "category", "ingredients", "steps", "extraNeeded", "notes"},
	}

	return map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"suggestions": map[string]interface{}{
				"type":     "array",
				"minItems": SuggestionCount,
				"maxItems": SuggestionCount,
				"items":    item,
			},
		},
		"required": []string{"suggestions"},
	}
}
