// Package rubrics owns rubric definitions: codes, versions, the single active
// rubric per category and duplicate detection.
package rubrics

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shrimpsizemoose/semla/internal/logging"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

var (
	ErrRubricNotFound   = errors.New("rubric not found")
	ErrDuplicateContent = errors.New("rubric duplicates existing content")
)

type rubricMap map[string]models.Rubric

type Registry struct {
	mu    sync.Mutex
	kv    *store.KV
	log   *logging.Logger
	now   func() time.Time
	newID func() string
}

func NewRegistry(kv *store.KV, log *logging.Logger) *Registry {
	return &Registry{
		kv:    kv,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func (r *Registry) load(ctx context.Context) (rubricMap, error) {
	m := rubricMap{}
	if _, err := r.kv.Get(ctx, store.KeyRubrics, &m); err != nil {
		return nil, fmt.Errorf("failed to load rubrics: %w", err)
	}
	return m, nil
}

func (r *Registry) save(ctx context.Context, m rubricMap) error {
	if err := r.kv.Set(ctx, store.KeyRubrics, m); err != nil {
		return fmt.Errorf("failed to save rubrics: %w", err)
	}
	return nil
}

// Save inserts or replaces a rubric. A rubric without a code gets the next
// version of "R{type}{delivery}-{course base}". Saving an active rubric
// deactivates its siblings in the same write.
func (r *Registry) Save(ctx context.Context, rubric models.Rubric) (*models.Rubric, error) {
	if err := rubric.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rubric: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	saved := r.prepare(all, rubric)
	next := maps.Clone(all)
	next[saved.ID] = saved
	if saved.Active {
		r.deactivateSiblings(next, saved)
	}

	if err := r.save(ctx, next); err != nil {
		return nil, err
	}
	r.log.Debugf("saved rubric %s (%s v%d)", saved.ID, saved.Code, saved.Version)
	return &saved, nil
}

func (r *Registry) prepare(all rubricMap, rubric models.Rubric) models.Rubric {
	now := r.now()
	if rubric.ID == "" {
		rubric.ID = r.newID()
	}
	if existing, ok := all[rubric.ID]; ok {
		rubric.CreatedAt = existing.CreatedAt
		if rubric.Code == "" {
			rubric.Code = existing.Code
		}
	}
	if rubric.CreatedAt.IsZero() {
		rubric.CreatedAt = now
	}
	rubric.UpdatedAt = now
	rubric.TotalPoints = TotalPoints(&rubric)

	if rubric.Code == "" {
		course := ""
		if len(rubric.Courses) > 0 {
			course = rubric.Courses[0]
		}
		prefix := CodePrefix(rubric.Type, rubric.Delivery, course)
		n := nextCodeVersion(all, prefix)
		rubric.Code = formatCode(prefix, n)
		rubric.Version = n
	}
	if rubric.Version == 0 {
		if n, ok := CodeVersion(rubric.Code); ok {
			rubric.Version = n
		} else {
			rubric.Version = 1
		}
	}
	return rubric
}

// deactivateSiblings turns off every other rubric sharing x's base code, or
// sharing its type, delivery and at least one course.
func (r *Registry) deactivateSiblings(all rubricMap, x models.Rubric) {
	base := BaseCode(x.Code)
	now := r.now()
	for id, y := range all {
		if id == x.ID || !y.Active {
			continue
		}
		sameBase := x.Code != "" && BaseCode(y.Code) == base
		sameCategory := y.Type == x.Type && y.Delivery == x.Delivery && x.SharesCourse(&y)
		if sameBase || sameCategory {
			y.Active = false
			y.UpdatedAt = now
			all[id] = y
			r.log.Debugf("deactivated rubric %s (%s) in favour of %s", y.ID, y.Code, x.ID)
		}
	}
}

// SaveChecked runs duplicate detection before saving. Identical rubrics are
// reused, content duplicates under another name are rejected, and anything
// else is stored as a new record. A generated code and the version always
// agree: the version is one past the highest code sharing the new code's
// prefix.
func (r *Registry) SaveChecked(ctx context.Context, rubric models.Rubric) (*models.Rubric, Decision, error) {
	if err := rubric.Validate(); err != nil {
		return nil, Decision{}, fmt.Errorf("invalid rubric: %w", err)
	}

	stored, err := r.List(ctx, Filter{})
	if err != nil {
		return nil, Decision{}, err
	}

	d := Classify(&rubric, stored)
	switch d.Class {
	case ClassIdentical:
		return d.Existing, d, nil
	case ClassContentDuplicate:
		return nil, d, fmt.Errorf("%s: %w", d.Message, ErrDuplicateContent)
	}

	// new rubrics and new versions are always new records
	rubric.ID = ""
	rubric.Version = d.Version
	for _, s := range stored {
		if rubric.Code != "" && s.Code == rubric.Code {
			rubric.Code = ""
			break
		}
	}

	saved, err := r.Save(ctx, rubric)
	if err != nil {
		return nil, d, err
	}
	if d.Class == ClassNewVersion && saved.Version != d.Version {
		d.Version = saved.Version
		d.Message = fmt.Sprintf("new version %d of rubric %q", saved.Version, saved.Name)
	}
	return saved, d, nil
}

// Get returns nil, nil for an unknown id.
func (r *Registry) Get(ctx context.Context, id string) (*models.Rubric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	rubric, ok := all[id]
	if !ok {
		return nil, nil
	}
	return &rubric, nil
}

type Filter struct {
	Type       models.RubricType
	Delivery   models.DeliveryType
	Course     string
	ActiveOnly bool
}

func (f Filter) match(r *models.Rubric) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Delivery != "" && r.Delivery != f.Delivery {
		return false
	}
	if f.ActiveOnly && !r.Active {
		return false
	}
	if f.Course != "" {
		found := false
		for _, c := range r.Courses {
			if c == f.Course {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// List is ordered by code, then id.
func (r *Registry) List(ctx context.Context, f Filter) ([]models.Rubric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Rubric, 0, len(all))
	for _, rubric := range all {
		if f.match(&rubric) {
			out = append(out, rubric)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Active returns the active rubric for a category, or nil.
func (r *Registry) Active(ctx context.Context, t models.RubricType, d models.DeliveryType, course string) (*models.Rubric, error) {
	list, err := r.List(ctx, Filter{Type: t, Delivery: d, Course: course, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r *Registry) Activate(ctx context.Context, id string) (*models.Rubric, error) {
	return r.setActive(ctx, id, true)
}

func (r *Registry) Deactivate(ctx context.Context, id string) (*models.Rubric, error) {
	return r.setActive(ctx, id, false)
}

func (r *Registry) setActive(ctx context.Context, id string, active bool) (*models.Rubric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	rubric, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrRubricNotFound)
	}

	rubric.Active = active
	rubric.UpdatedAt = r.now()
	next := maps.Clone(all)
	next[id] = rubric
	if active {
		r.deactivateSiblings(next, rubric)
	}

	if err := r.save(ctx, next); err != nil {
		return nil, err
	}
	return &rubric, nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := all[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrRubricNotFound)
	}

	next := maps.Clone(all)
	delete(next, id)
	return r.save(ctx, next)
}

// All returns the raw map, used by backups.
func (r *Registry) All(ctx context.Context) (map[string]models.Rubric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *Registry) ReplaceAll(ctx context.Context, rubrics map[string]models.Rubric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(rubricMap, len(rubrics))
	for id, rubric := range rubrics {
		if rubric.ID == "" {
			rubric.ID = id
		}
		next[id] = rubric
	}
	return r.save(ctx, next)
}
