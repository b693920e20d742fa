package recipe

import (
	"fmt"
	"strings"
)

// ValidateStrict 檢查嚴格模式：extraNeeded 必須為空，食材必須包含允許的鍵值
func ValidateStrict(suggestions []Suggestion, allowedKeys []string) []string {
	violations := []string{}

	for i, s := range suggestions {
		if len(s.ExtraNeeded) > 0 {
			violations = append(violations, fmt.Sprintf("Sugestão %d: extraNeeded precisa ser [] no modo estrito.", i+1))
		}
		for _, line := range s.Ingredients {
			if !isAllowed(line, allowedKeys) {
				violations = append(violations, fmt.Sprintf("Sugestão %d: ingrediente fora da lista -> \"%s\"", i+1, line))
			}
		}
	}

	return violations
}

func isAllowed(line string, allowedKeys []string) bool {
	key := NormalizeKey(line)
	for _, a := range allowedKeys {
		if a != "" && strings.Contains(key, a) {
			return true
		}
	}
	return false
}
