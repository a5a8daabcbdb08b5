package csvimport

import (
	"strings"

	"github.com/shrimpsizemoose/semla/internal/textnorm"
)

type column int

const (
	colName column = iota
	colSurname
	colGivenName
	colExternalID
	colLogin
	colSection
	colGroupName
	colGroupID
	numColumns
)

// synonyms are matched against folded header cells; earlier entries win.
var synonyms = [numColumns][]string{
	colName:       {"student", "nombre", "estudiante"},
	colSurname:    {"apellidos", "apellido", "last name"},
	colGivenName:  {"nombres", "first name"},
	colExternalID: {"id", "canvas_user_id", "canvas user id"},
	colLogin:      {"sis login id", "login_id", "sis user id", "email", "correo"},
	colSection:    {"section", "secciones", "seccion"},
	colGroupName:  {"group_name", "group name", "grupo"},
	colGroupID:    {"group_id", "canvas_group_id", "group id"},
}

var (
	deliveryMarkers = []string{"entrega", "proyecto", "escenario", "sustentacion"}
	metadataMarkers = []string{"current points", "final points", "current score", "final score", "unposted"}
)

type deliveryColumn struct {
	index int
	name  string
}

type header struct {
	index      [numColumns]int
	deliveries []deliveryColumn
}

func resolveHeader(cells []string) header {
	folded := make([]string, len(cells))
	for i, c := range cells {
		folded[i] = textnorm.Fold(strings.TrimSpace(c))
	}

	var h header
	for col := range h.index {
		h.index[col] = -1
		for _, syn := range synonyms[col] {
			if i := indexOf(folded, syn); i >= 0 {
				h.index[col] = i
				break
			}
		}
	}

	for i, f := range folded {
		if IsDeliveryHeader(f) {
			h.deliveries = append(h.deliveries, deliveryColumn{index: i, name: cells[i]})
		}
	}

	return h
}

// IsDeliveryHeader reports whether a grade-export header names a scored
// delivery rather than one of the LMS total columns.
func IsDeliveryHeader(name string) bool {
	f := textnorm.Fold(name)
	for _, m := range metadataMarkers {
		if strings.Contains(f, m) {
			return false
		}
	}
	for _, m := range deliveryMarkers {
		if strings.Contains(f, m) {
			return true
		}
	}
	return false
}

func (h header) get(cells []string, col column) string {
	i := h.index[col]
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func indexOf(cells []string, want string) int {
	for i, c := range cells {
		if c == want {
			return i
		}
	}
	return -1
}
