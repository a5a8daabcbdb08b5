package csvimport

import (
	"regexp"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/textnorm"
)

// Section is the course metadata encoded in the LMS section field, e.g.
// "PENSAMIENTO MATEMATICO-[GRUPO B01]-VIRTUAL-[2024-1 BLOQUE 2]-A".
type Section struct {
	CourseName string `json:"nombreCurso"`
	Group      string `json:"grupo"`
	Modality   string `json:"modalidad"`
	Block      string `json:"bloque"`
	Intake     string `json:"ingreso"`
}

var (
	strictSection = regexp.MustCompile(`(?i)^\s*(.+?)\s*-\s*\[\s*GRUPO\s+([A-Z0-9]+)\s*\]\s*-\s*(\p{L}+)\s*-\s*\[\s*([^\]]+?)\s*\]\s*-\s*([A-Z])\s*$`)

	fallbackName     = regexp.MustCompile(`^\s*([^\[\-]+?)\s*(?:-|\[|$)`)
	fallbackGroup    = regexp.MustCompile(`(?i)GRUPO\s*([A-Z]?\d+)`)
	fallbackModality = regexp.MustCompile(`(?i)\b(VIRTUAL|PRESENCIAL|HIBRIDO|DISTANCIA)\b`)
	fallbackBlock    = regexp.MustCompile(`(?i)\[([^\]]*BLOQUE[^\]]*)\]|\b(BLOQUE\s*\d+)\b`)
	fallbackIntake   = regexp.MustCompile(`-\s*([A-Za-z])\s*$`)
)

var intakeLetters = map[string]bool{"A": true, "B": true, "C": true, "E": true}

// ParseSection tries the combined pattern first, then each part on its own.
// The fallback patterns run on the diacritics-stripped value.
func ParseSection(raw string) Section {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Section{}
	}
	plain := textnorm.StripDiacritics(raw)

	var s Section
	if m := strictSection.FindStringSubmatch(raw); m != nil {
		s = Section{
			CourseName: m[1],
			Group:      strings.ToUpper(m[2]),
			Modality:   strings.ToUpper(textnorm.StripDiacritics(m[3])),
			Block:      m[4],
			Intake:     strings.ToUpper(m[5]),
		}
	} else {
		if m := fallbackName.FindStringSubmatch(raw); m != nil {
			s.CourseName = m[1]
		}
		if m := fallbackGroup.FindStringSubmatch(plain); m != nil {
			s.Group = strings.ToUpper(m[1])
		}
		if m := fallbackModality.FindStringSubmatch(plain); m != nil {
			s.Modality = strings.ToUpper(m[1])
		}
		if m := fallbackBlock.FindStringSubmatch(plain); m != nil {
			s.Block = strings.TrimSpace(m[1] + m[2])
		}
		if m := fallbackIntake.FindStringSubmatch(plain); m != nil {
			s.Intake = strings.ToUpper(m[1])
		}
	}

	if !intakeLetters[s.Intake] {
		s.Intake = ""
	}
	return s
}
