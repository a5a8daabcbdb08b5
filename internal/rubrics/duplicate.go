package rubrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/textnorm"
)

type Classification string

const (
	ClassNew              Classification = "nueva"
	ClassNewVersion       Classification = "nueva_version"
	ClassContentDuplicate Classification = "duplicada_contenido"
	ClassIdentical        Classification = "duplicada_identica"
)

type Decision struct {
	Class    Classification `json:"clasificacion"`
	Existing *models.Rubric `json:"existente,omitempty"`
	Version  int            `json:"version"`
	Message  string         `json:"mensaje"`
}

// CompareContent lists every content difference between a and b, ignoring
// names, ids, codes and activation. No differences means identical content.
func CompareContent(a, b *models.Rubric) []string {
	var diffs []string
	add := func(format string, args ...interface{}) {
		diffs = append(diffs, fmt.Sprintf(format, args...))
	}

	if !sameNumber(TotalPoints(a), TotalPoints(b)) {
		add("total points %.2f != %.2f", TotalPoints(a), TotalPoints(b))
	}
	if a.Type != b.Type {
		add("rubric type %s != %s", a.Type, b.Type)
	}
	if a.Delivery != b.Delivery {
		add("delivery %s != %s", a.Delivery, b.Delivery)
	}
	if len(a.Criteria) != len(b.Criteria) {
		add("criteria count %d != %d", len(a.Criteria), len(b.Criteria))
		return diffs
	}

	for i := range a.Criteria {
		ca, cb := a.Criteria[i], b.Criteria[i]
		if !sameText(ca.Title, cb.Title) {
			add("criterion %d title %q != %q", i+1, ca.Title, cb.Title)
		}
		if !sameNumber(ca.Weight, cb.Weight) {
			add("criterion %d weight %.2f != %.2f", i+1, ca.Weight, cb.Weight)
		}
		if !sameText(ca.Description, cb.Description) {
			add("criterion %d description differs", i+1)
		}
		if !sameNumber(ca.MaxPoints, cb.MaxPoints) {
			add("criterion %d max points %.2f != %.2f", i+1, ca.MaxPoints, cb.MaxPoints)
		}
		if len(ca.Levels) != len(cb.Levels) {
			add("criterion %d level count %d != %d", i+1, len(ca.Levels), len(cb.Levels))
			continue
		}
		for j := range ca.Levels {
			la, lb := ca.Levels[j], cb.Levels[j]
			if !sameText(la.Title, lb.Title) {
				add("criterion %d level %d title %q != %q", i+1, j+1, la.Title, lb.Title)
			}
			if !sameText(la.Description, lb.Description) {
				add("criterion %d level %d description differs", i+1, j+1)
			}
			if !sameNumber(la.Min, lb.Min) || !sameNumber(la.Max, lb.Max) {
				add("criterion %d level %d range [%.2f, %.2f] != [%.2f, %.2f]",
					i+1, j+1, la.Min, la.Max, lb.Min, lb.Max)
			}
		}
	}
	return diffs
}

// SameName compares names ignoring case, diacritics and punctuation.
func SameName(a, b string) bool {
	return textnorm.Key(a) == textnorm.Key(b)
}

// Classify decides how candidate relates to the stored rubrics. Content is
// checked first, regardless of name; names break the tie.
func Classify(candidate *models.Rubric, stored []models.Rubric) Decision {
	sorted := append([]models.Rubric(nil), stored...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var contentMatch *models.Rubric
	for i := range sorted {
		r := &sorted[i]
		if len(CompareContent(candidate, r)) > 0 {
			continue
		}
		if SameName(candidate.Name, r.Name) {
			return Decision{
				Class:    ClassIdentical,
				Existing: r,
				Version:  r.Version,
				Message:  fmt.Sprintf("rubric %q already exists with identical content", r.Name),
			}
		}
		if contentMatch == nil {
			contentMatch = r
		}
	}
	if contentMatch != nil {
		return Decision{
			Class:    ClassContentDuplicate,
			Existing: contentMatch,
			Version:  contentMatch.Version,
			Message: fmt.Sprintf("same content as rubric %q (%s); rename is not a new rubric",
				contentMatch.Name, contentMatch.Code),
		}
	}

	var latest *models.Rubric
	for i := range sorted {
		r := &sorted[i]
		if SameName(candidate.Name, r.Name) && (latest == nil || r.Version > latest.Version) {
			latest = r
		}
	}
	if latest != nil {
		return Decision{
			Class:    ClassNewVersion,
			Existing: latest,
			Version:  latest.Version + 1,
			Message:  fmt.Sprintf("new version %d of rubric %q", latest.Version+1, latest.Name),
		}
	}

	return Decision{Class: ClassNew, Version: 1, Message: "new rubric"}
}

func sameText(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

func sameNumber(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
