package position

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Position is an officer position as issued by the backend.
type Position string

const (
	President      Position = "PRESIDENT"
	VPInternal     Position = "VP_INTERNAL"
	VPExternal     Position = "VP_EXTERNAL"
	Secretary      Position = "SECRETARY"
	Treasurer      Position = "TREASURER"
	AssistantTreas Position = "ASSISTANT_TREASURER"
	Auditor        Position = "AUDITOR"
	PIO            Position = "PIO"
	PRO            Position = "PRO"
	ChiefVolunteer Position = "CHIEF_VOLUNTEER"
	FirstYearRep   Position = "FIRST_YEAR_REPRESENTATIVE"
	SecondYearRep  Position = "SECOND_YEAR_REPRESENTATIVE"
	ThirdYearRep   Position = "THIRD_YEAR_REPRESENTATIVE"
	FourthYearRep  Position = "FOURTH_YEAR_REPRESENTATIVE"
	Developer      Position = "DEVELOPER"
)

// Executive positions have full admin access.
var Executive = []Position{President, VPInternal, VPExternal, Secretary}

// Finance positions may record payments.
var Finance = []Position{Treasurer, AssistantTreas, Auditor}

// acronyms keep their upper case in labels.
var acronyms = map[string]string{"Vp": "VP", "Pio": "PIO", "Pro": "PRO"}

// Parse normalises a raw claim value.
func Parse(s string) Position {
	return Position(strings.ToUpper(strings.TrimSpace(s)))
}

// IsExecutive reports whether p is an executive position.
func (p Position) IsExecutive() bool {
	return contains(Executive, p)
}

// IsFinance reports whether p is a finance position.
func (p Position) IsFinance() bool {
	return contains(Finance, p)
}

// Label returns a display label, e.g. "VP Internal" or "Assistant Treasurer".
func (p Position) Label() string {
	if p == "" {
		return "Unknown"
	}
	words := strings.Fields(cases.Title(language.Und).String(strings.ReplaceAll(string(p), "_", " ")))
	for i, w := range words {
		if a, ok := acronyms[w]; ok {
			words[i] = a
		}
	}
	return strings.Join(words, " ")
}

func contains(set []Position, p Position) bool {
	for _, q := range set {
		if q == p {
			return true
		}
	}
	return false
}
