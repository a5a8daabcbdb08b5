// Package backup exports and restores the whole dataset as one JSON document.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shrimpsizemoose/semla/internal/courses"
	"github.com/shrimpsizemoose/semla/internal/evaluations"
	"github.com/shrimpsizemoose/semla/internal/logging"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/rubrics"
	"github.com/shrimpsizemoose/semla/internal/store"
)

const FormatVersion = "1.0"

var ErrInvalidBackup = errors.New("invalid backup: cursos and evaluaciones are required")

type Document struct {
	Courses     map[string]models.Course     `json:"cursos"`
	Evaluations map[string]models.Evaluation `json:"evaluaciones"`
	UI          json.RawMessage              `json:"ui,omitempty"`
	Rubrics     map[string]models.Rubric     `json:"rubricas,omitempty"`
	Version     string                       `json:"version"`
	ExportedAt  time.Time                    `json:"fechaExportacion"`
}

// Summary counts what an import wrote.
type Summary struct {
	Courses     int  `json:"cursos"`
	Evaluations int  `json:"evaluaciones"`
	Rubrics     int  `json:"rubricas"`
	UI          bool `json:"ui"`
}

type Manager struct {
	kv          *store.KV
	courses     *courses.Registry
	evaluations *evaluations.Store
	rubrics     *rubrics.Registry
	log         *logging.Logger
	now         func() time.Time
}

func NewManager(kv *store.KV, c *courses.Registry, e *evaluations.Store, r *rubrics.Registry, log *logging.Logger) *Manager {
	return &Manager{kv: kv, courses: c, evaluations: e, rubrics: r, log: log, now: time.Now}
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Export(ctx context.Context) (*Document, error) {
	list, err := m.courses.List(ctx)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Courses:    make(map[string]models.Course, len(list)),
		Version:    FormatVersion,
		ExportedAt: m.now(),
	}
	for _, c := range list {
		doc.Courses[c.Key] = c
	}

	if doc.Evaluations, err = m.evaluations.All(ctx); err != nil {
		return nil, err
	}
	if doc.Rubrics, err = m.rubrics.All(ctx); err != nil {
		return nil, err
	}

	var ui json.RawMessage
	ok, err := m.kv.Get(ctx, store.KeyUIPreferences, &ui)
	if err != nil {
		return nil, err
	}
	if ok {
		doc.UI = ui
	}
	return doc, nil
}

func (m *Manager) Write(ctx context.Context, w io.Writer) error {
	doc, err := m.Export(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Decode parses and checks a backup without touching any store.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse backup: %w", err)
	}
	if doc.Courses == nil || doc.Evaluations == nil {
		return nil, ErrInvalidBackup
	}
	return &doc, nil
}

// Import re-seeds each registry from data. Registries are written
// independently: a failing one does not stop the rest. Rubrics and ui are
// only replaced when present.
func (m *Manager) Import(ctx context.Context, data []byte) (*Summary, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	var errs []error
	if err := m.courses.ReplaceAll(ctx, doc.Courses); err != nil {
		errs = append(errs, err)
	} else {
		sum.Courses = len(doc.Courses)
	}
	if err := m.evaluations.ReplaceAll(ctx, doc.Evaluations); err != nil {
		errs = append(errs, err)
	} else {
		sum.Evaluations = len(doc.Evaluations)
	}
	if doc.Rubrics != nil {
		if err := m.rubrics.ReplaceAll(ctx, doc.Rubrics); err != nil {
			errs = append(errs, err)
		} else {
			sum.Rubrics = len(doc.Rubrics)
		}
	}
	if len(doc.UI) > 0 && string(doc.UI) != "null" {
		if err := m.kv.Set(ctx, store.KeyUIPreferences, doc.UI); err != nil {
			errs = append(errs, err)
		} else {
			sum.UI = true
		}
	}

	m.log.Infof("backup %s restored: %d courses, %d evaluations, %d rubrics",
		doc.Version, sum.Courses, sum.Evaluations, sum.Rubrics)
	return sum, errors.Join(errs...)
}
