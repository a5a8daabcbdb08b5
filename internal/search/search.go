// Package search finds students across course rosters.
package search

import (
	"strings"

	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/textnorm"
)

type Hit struct {
	CourseKey  string         `json:"curso"`
	CourseName string         `json:"cursoNombre"`
	Student    models.Student `json:"estudiante"`
}

// Search matches query against student names, emails and external ids,
// ignoring case and diacritics. Every word of the query must appear. A limit
// of zero or less returns all hits.
func Search(list []models.Course, query string, limit int) []Hit {
	terms := strings.Fields(textnorm.Fold(query))
	if len(terms) == 0 {
		return nil
	}

	var hits []Hit
	for _, c := range list {
		for _, s := range c.Students {
			if !matches(s, terms) {
				continue
			}
			hits = append(hits, Hit{CourseKey: c.Key, CourseName: c.Name, Student: s})
			if limit > 0 && len(hits) >= limit {
				return hits
			}
		}
	}
	return hits
}

func matches(s models.Student, terms []string) bool {
	haystack := textnorm.Fold(strings.Join([]string{
		s.GivenName, s.Surname, s.Email, s.CanvasUserID,
	}, " "))
	for _, t := range terms {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}
