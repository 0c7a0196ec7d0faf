package translator

import "strings"

// Lexicon is a bidirectional term mapping for one target locale. Terms
// absent from the lexicon pass through unchanged, which keeps the transform
// reversible for unknown vocabulary.
type Lexicon struct {
	forward map[string]string
	reverse map[string]string
}

// NewLexicon builds a lexicon from source-term to localized-term pairs.
// A target term mapped from multiple sources makes the reverse direction
// ambiguous; the last pair wins, and round-trip verification will catch the
// resulting corruption downstream.
func NewLexicon(pairs map[string]string) *Lexicon {
	forward := make(map[string]string, len(pairs))
	reverse := make(map[string]string, len(pairs))
	for src, dst := range pairs {
		forward[src] = dst
		reverse[dst] = src
	}
	return &Lexicon{forward: forward, reverse: reverse}
}

// Forward localizes each word of s, preserving separators.
func (l *Lexicon) Forward(s string) string {
	return mapWords(s, l.forward)
}

// Back reverses the localization of each word of s.
func (l *Lexicon) Back(s string) string {
	return mapWords(s, l.reverse)
}

func mapWords(s string, table map[string]string) string {
	words := strings.Split(s, " ")
	for i, word := range words {
		if mapped, ok := table[word]; ok {
			words[i] = mapped
		}
	}
	return strings.Join(words, " ")
}

// builtinLexicons cover the locales the verification harness exercises.
var builtinLexicons = map[string]*Lexicon{
	"es": NewLexicon(map[string]string{
		"Appointment": "Cita",
		"Reminder":    "Recordatorio",
		"Message":     "Mensaje",
		"Delivery":    "Entrega",
		"Payment":     "Pago",
	}),
	"fr": NewLexicon(map[string]string{
		"Appointment": "Rendez-vous",
		"Reminder":    "Rappel",
		"Message":     "Message",
		"Delivery":    "Livraison",
		"Payment":     "Paiement",
	}),
	"de": NewLexicon(map[string]string{
		"Appointment": "Termin",
		"Reminder":    "Erinnerung",
		"Message":     "Nachricht",
		"Delivery":    "Lieferung",
		"Payment":     "Zahlung",
	}),
}
