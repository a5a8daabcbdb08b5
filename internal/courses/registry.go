// Package courses owns course metadata, rosters and attached grade files.
package courses

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shrimpsizemoose/semla/internal/csvimport"
	"github.com/shrimpsizemoose/semla/internal/logging"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

var (
	ErrCourseExists   = errors.New("course key already exists")
	ErrCourseNotFound = errors.New("course not found")
	ErrCodeRequired   = errors.New("course code is required")
)

type rosters map[string][]models.Student
type metas map[string]models.CourseMeta

// Registry keeps rosters under store.KeyRosters and metadata under
// store.KeyCourseMeta. Every mutation reads both maps, changes a copy and
// writes the copy back.
type Registry struct {
	mu  sync.Mutex
	kv  *store.KV
	log *logging.Logger
	now func() time.Time
}

func NewRegistry(kv *store.KV, log *logging.Logger) *Registry {
	return &Registry{kv: kv, log: log, now: time.Now}
}

// WithClock replaces the clock used for keys and timestamps.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

type NewCourse struct {
	Code      string           `json:"codigo"`
	AltCode   string           `json:"codigoAlterno,omitempty"`
	ShortCode string           `json:"codigoCorto,omitempty"`
	Name      string           `json:"nombre"`
	ShortName string           `json:"nombreCorto,omitempty"`
	Block     string           `json:"bloque,omitempty"`
	Intake    string           `json:"ingreso,omitempty"`
	Modality  string           `json:"modalidad,omitempty"`
	Color     string           `json:"color,omitempty"`
	Students  []models.Student `json:"estudiantes"`
}

var baseCodePattern = regexp.MustCompile(`^(.*?)-B?\d+`)

// BaseCode returns what precedes the first "-B<digits>" or "-<digits>"
// segment, grouping terms and cohorts of the same course. Codes without such a
// segment are their own base.
func BaseCode(code string) string {
	if m := baseCodePattern.FindStringSubmatch(code); m != nil && m[1] != "" {
		return m[1]
	}
	return code
}

func (r *Registry) load(ctx context.Context) (rosters, metas, error) {
	rs := rosters{}
	if _, err := r.kv.Get(ctx, store.KeyRosters, &rs); err != nil {
		return nil, nil, fmt.Errorf("failed to load rosters: %w", err)
	}
	ms := metas{}
	if _, err := r.kv.Get(ctx, store.KeyCourseMeta, &ms); err != nil {
		return nil, nil, fmt.Errorf("failed to load course metadata: %w", err)
	}
	return rs, ms, nil
}

func (r *Registry) saveRosters(ctx context.Context, rs rosters) error {
	if err := r.kv.Set(ctx, store.KeyRosters, rs); err != nil {
		return fmt.Errorf("failed to save rosters: %w", err)
	}
	return nil
}

func (r *Registry) saveMetas(ctx context.Context, ms metas) error {
	if err := r.kv.Set(ctx, store.KeyCourseMeta, ms); err != nil {
		return fmt.Errorf("failed to save course metadata: %w", err)
	}
	return nil
}

// Create stores a new course under "{code}-{unixMillis}".
func (r *Registry) Create(ctx context.Context, in NewCourse) (*models.Course, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ms, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	key := fmt.Sprintf("%s-%d", code, now.UnixMilli())
	_, inRosters := rs[key]
	_, inMetas := ms[key]
	if inRosters || inMetas {
		return nil, fmt.Errorf("%s: %w", key, ErrCourseExists)
	}

	meta := models.CourseMeta{
		Key:       key,
		Code:      code,
		AltCode:   in.AltCode,
		ShortCode: in.ShortCode,
		BaseCode:  BaseCode(code),
		Name:      in.Name,
		ShortName: in.ShortName,
		Block:     in.Block,
		Intake:    strings.ToUpper(in.Intake),
		Modality:  in.Modality,
		Color:     in.Color,
		CreatedAt: now,
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid course %s: %w", code, err)
	}

	var siblings []string
	for k, m := range ms {
		if m.BaseCode == meta.BaseCode {
			siblings = append(siblings, k)
		}
	}
	if len(siblings) > 0 {
		sort.Strings(siblings)
		r.log.Warnf("course %s shares base code %s with %v", key, meta.BaseCode, siblings)
	}

	students := stamp(in.Students, key)

	nextRosters := maps.Clone(rs)
	nextRosters[key] = students
	if err := r.saveRosters(ctx, nextRosters); err != nil {
		return nil, err
	}

	nextMetas := maps.Clone(ms)
	nextMetas[key] = meta
	if err := r.saveMetas(ctx, nextMetas); err != nil {
		return nil, err
	}

	r.log.Debugf("created course %s with %d students", key, len(students))
	return &models.Course{CourseMeta: meta, Students: students}, nil
}

// Get returns nil, nil when nothing resolves.
func (r *Registry) Get(ctx context.Context, id string) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ms, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	key := resolve(id, rs, ms).Key
	return assemble(key, rs, ms), nil
}

func (r *Registry) List(ctx context.Context) ([]models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ms, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{}, len(ms))
	for k := range ms {
		keys[k] = struct{}{}
	}
	for k := range rs {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	out := make([]models.Course, 0, len(sorted))
	for _, k := range sorted {
		out = append(out, *assemble(k, rs, ms))
	}
	return out, nil
}

// Lookup is Resolve with the matching strategy attached.
func (r *Registry) Lookup(ctx context.Context, id string) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ms, err := r.load(ctx)
	if err != nil {
		return Resolution{}, err
	}
	return resolve(id, rs, ms), nil
}

// Resolve maps a loose identifier to a storage key. An identifier that matches
// nothing comes back unchanged.
func (r *Registry) Resolve(ctx context.Context, id string) (string, error) {
	res, err := r.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	return res.Key, nil
}

// Refs lists the identifiers evaluations and other records may carry for a
// course: its storage key, then each code or alias it does not share with
// another course. It returns nil when nothing resolves.
func (r *Registry) Refs(ctx context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ms, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	res := resolve(id, rs, ms)
	if !res.Found {
		return nil, nil
	}
	return refs(res.Key, ms), nil
}

// CourseUpdate changes only the non-nil fields.
type CourseUpdate struct {
	Name      *string `json:"nombre,omitempty"`
	ShortName *string `json:"nombreCorto,omitempty"`
	AltCode   *string `json:"codigoAlterno,omitempty"`
	ShortCode *string `json:"codigoCorto,omitempty"`
	Block     *string `json:"bloque,omitempty"`
	Intake    *string `json:"ingreso,omitempty"`
	Modality  *string `json:"modalidad,omitempty"`
	Color     *string `json:"color,omitempty"`
}

func (r *Registry) Update(ctx context.Context, id string, upd CourseUpdate) (*models.CourseMeta, error) {
	return r.mutateMeta(ctx, id, func(m *models.CourseMeta) error {
		set := func(dst *string, src *string) {
			if src != nil {
				*dst = strings.TrimSpace(*src)
			}
		}
		set(&m.Name, upd.Name)
		set(&m.ShortName, upd.ShortName)
		set(&m.AltCode, upd.AltCode)
		set(&m.ShortCode, upd.ShortCode)
		set(&m.Block, upd.Block)
		set(&m.Modality, upd.Modality)
		set(&m.Color, upd.Color)
		if upd.Intake != nil {
			m.Intake = strings.ToUpper(strings.TrimSpace(*upd.Intake))
		}
		return m.Validate()
	})
}

func (r *Registry) Rename(ctx context.Context, id, name string) (*models.CourseMeta, error) {
	name = strings.TrimSpace(name)
	return r.Update(ctx, id, CourseUpdate{Name: &name})
}

func (r *Registry) mutateMeta(ctx context.Context, id string, fn func(*models.CourseMeta) error) (*models.CourseMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ms, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	key := resolve(id, rs, ms).Key
	meta, ok := ms[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrCourseNotFound)
	}

	if err := fn(&meta); err != nil {
		return nil, err
	}

	next := maps.Clone(ms)
	next[key] = meta
	if err := r.saveMetas(ctx, next); err != nil {
		return nil, err
	}
	return &meta, nil
}

// SetStudents replaces the roster wholesale.
func (r *Registry) SetStudents(ctx context.Context, id string, students []models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ms, err := r.load(ctx)
	if err != nil {
		return err
	}
	key := resolve(id, rs, ms).Key
	_, inRosters := rs[key]
	_, inMetas := ms[key]
	if !inRosters && !inMetas {
		return fmt.Errorf("%s: %w", id, ErrCourseNotFound)
	}

	next := maps.Clone(rs)
	next[key] = stamp(students, key)
	return r.saveRosters(ctx, next)
}

// AttachGradeFile parses a finalized grade export and attaches it only if its
// external ids match the roster exactly. A mismatch is reported in the
// returned Validation and nothing is stored.
func (r *Registry) AttachGradeFile(ctx context.Context, id, fileName, text string) (Validation, error) {
	rows, err := csvimport.ParseFinalGrades(text)
	if err != nil {
		return Validation{}, fmt.Errorf("failed to parse grade file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ms, err := r.load(ctx)
	if err != nil {
		return Validation{}, err
	}
	key := resolve(id, rs, ms).Key
	meta, ok := ms[key]
	if !ok {
		return Validation{}, fmt.Errorf("%s: %w", id, ErrCourseNotFound)
	}

	v := ValidateGradeFile(rs[key], rows)
	if !v.Valid {
		r.log.Debugf("rejected grade file for %s: %s", key, v.Message)
		return v, nil
	}

	meta.GradeFile = &models.GradeFile{
		FileName:   fileName,
		Original:   text,
		Rows:       rows,
		UploadedAt: r.now(),
	}
	next := maps.Clone(ms)
	next[key] = meta
	if err := r.saveMetas(ctx, next); err != nil {
		return Validation{}, err
	}
	return v, nil
}

func (r *Registry) DetachGradeFile(ctx context.Context, id string) error {
	_, err := r.mutateMeta(ctx, id, func(m *models.CourseMeta) error {
		m.GradeFile = nil
		return nil
	})
	return err
}

// Delete removes the roster and the metadata entries. Both writes are
// attempted even if the first fails; retrying is safe.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ms, err := r.load(ctx)
	if err != nil {
		return err
	}
	key := resolve(id, rs, ms).Key
	_, inRosters := rs[key]
	_, inMetas := ms[key]
	if !inRosters && !inMetas {
		return fmt.Errorf("%s: %w", id, ErrCourseNotFound)
	}

	var errs []error
	if inRosters {
		next := maps.Clone(rs)
		delete(next, key)
		if err := r.saveRosters(ctx, next); err != nil {
			errs = append(errs, err)
		}
	}
	if inMetas {
		next := maps.Clone(ms)
		delete(next, key)
		if err := r.saveMetas(ctx, next); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.log.Debugf("deleted course %s", key)
	return nil
}

// ReplaceAll re-seeds the registry, used by backup restore.
func (r *Registry) ReplaceAll(ctx context.Context, courses map[string]models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs := make(rosters, len(courses))
	ms := make(metas, len(courses))
	for key, c := range courses {
		meta := c.CourseMeta
		if meta.Key == "" {
			meta.Key = key
		}
		if meta.BaseCode == "" {
			meta.BaseCode = BaseCode(meta.Code)
		}
		rs[key] = c.Students
		ms[key] = meta
	}

	return errors.Join(r.saveRosters(ctx, rs), r.saveMetas(ctx, ms))
}

func assemble(key string, rs rosters, ms metas) *models.Course {
	meta, inMetas := ms[key]
	students, inRosters := rs[key]
	if !inMetas && !inRosters {
		return nil
	}
	if !inMetas {
		meta = models.CourseMeta{Key: key, Code: key, BaseCode: BaseCode(key)}
	}
	return &models.Course{CourseMeta: meta, Students: students}
}

func stamp(students []models.Student, key string) []models.Student {
	out := make([]models.Student, len(students))
	for i, s := range students {
		s.Course = key
		out[i] = s
	}
	return out
}
