// Package karma — detector.go классифицирует текст реплая:
// повышение кармы, понижение или ничего.
package karma

import "strings"

// ParseResult — результат классификации текста.
type ParseResult int

const (
	// Nothing — текст не является командой изменения кармы
	Nothing ParseResult = iota
	// RaiseCommand — текст начинается с фразы повышения
	RaiseCommand
	// LowerCommand — текст начинается с фразы понижения
	LowerCommand
)

// Detector определяет, меняет ли сообщение карму.
// Списки фраз — данные из конфигурации, не поведение.
type Detector struct {
	raisePhrases []string
	lowerPhrases []string
}

// NewDetector создаёт классификатор. Фразы приводятся к нижнему регистру один раз.
func NewDetector(raisePhrases, lowerPhrases []string) *Detector {
	return &Detector{
		raisePhrases: lowerAll(raisePhrases),
		lowerPhrases: lowerAll(lowerPhrases),
	}
}

// Parse проверяет текст по префиксу, без учёта регистра.
// Сначала фразы повышения, потом понижения; первая совпавшая побеждает.
func (d *Detector) Parse(text string) ParseResult {
	lowered := strings.ToLower(text)

	for _, phrase := range d.raisePhrases {
		if strings.HasPrefix(lowered, phrase) {
			return RaiseCommand
		}
	}
	for _, phrase := range d.lowerPhrases {
		if strings.HasPrefix(lowered, phrase) {
			return LowerCommand
		}
	}
	return Nothing
}

func lowerAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, strings.ToLower(p))
	}
	return out
}
