package announce

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Phraser turns a denomination label into the sentence that gets spoken.
type Phraser struct {
	printer *message.Printer
	unit    string
}

// NewPhraser builds a Phraser for a BCP 47 language tag. Unknown tags fall
// back to English number formatting.
func NewPhraser(lang, unit string) *Phraser {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		tag = language.English
	}
	return &Phraser{printer: message.NewPrinter(tag), unit: strings.TrimSpace(unit)}
}

// Phrase renders "500 rupees" for numeric labels, with locale digit grouping.
func (p *Phraser) Phrase(denomination string) string {
	denomination = strings.TrimSpace(denomination)
	if n, err := strconv.Atoi(denomination); err == nil {
		if p.unit == "" {
			return p.printer.Sprintf("%d", n)
		}
		return p.printer.Sprintf("%d %s", n, p.unit)
	}
	if p.unit == "" {
		return denomination
	}
	return denomination + " " + p.unit
}
