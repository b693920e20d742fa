package recipe

// 預設值
const (
	DefaultServings    = 2
	MinServings        = 1
	MaxServings        = 12
	DefaultTimeMinutes = 20
	DefaultCategory    = "Geral"
	MinIngredientsLen  = 3
	SuggestionCount    = 3
	MaxSteps           = 12
	maxNudgeViolations = 8
)

// Doneness 熟度偏好
type Doneness string

const (
	DonenessNone   Doneness = ""
	DonenessRare   Doneness = "mal_passada"
	DonenessMedium Doneness = "ao_ponto"
	DonenessWell   Doneness = "bem_passada"
)

// Equipment 烹調設備
type Equipment string

const (
	EquipmentAirFryer Equipment = "air_fryer"
	EquipmentOven     Equipment = "forno"
	EquipmentStove    Equipment = "fogao"
	EquipmentAny      Equipment = "qualquer"
)

// Request 建議請求，建立後不再修改
type Request struct {
	Ingredients  string
	Restrictions string
	Cuisine      string
	Equipment    string
	Servings     int
	AllowExtras  bool
	RequestID    string
}

// ParsedInput 使用者食材解析結果
type ParsedInput struct {
	AllowedLines []string
	AllowedKeys  []string
	Doneness     Doneness
}

// RestrictionHints 飲食限制分析結果
type RestrictionHints struct {
	Tags      []string
	Guidance  []string
	HasHealth bool
}

// Suggestion 單筆食譜建議
type Suggestion struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Servings    int      `json:"servings"`
	TimeMinutes int      `json:"timeMinutes"`
	Category    string   `json:"category"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	ExtraNeeded []string `json:"extraNeeded"`
	Notes       string   `json:"notes"`
}

// Prompt 組裝後的系統與使用者訊息
type Prompt struct {
	System string
	User   string
}

// ClampServings 份量限制在 1 到 12
func ClampServings(n int) int {
	if n < MinServings {
		return MinServings
	}
	if n > MaxServings {
		return MaxServings
	}
	return n
}
