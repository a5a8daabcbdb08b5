// Package evaluations stores scored evaluations under caller-supplied keys.
package evaluations

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shrimpsizemoose/semla/internal/logging"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrKeyRequired        = errors.New("evaluation key is required")
)

type evaluationMap map[string]models.Evaluation

// Key builds the composite key callers save evaluations under. The store
// never derives keys itself.
func Key(course string, delivery models.DeliveryType, t models.RubricType, target string) string {
	return strings.Join([]string{course, string(delivery), string(t), target}, "_")
}

type Store struct {
	mu  sync.Mutex
	kv  *store.KV
	log *logging.Logger
	now func() time.Time
}

func NewStore(kv *store.KV, log *logging.Logger) *Store {
	return &Store{kv: kv, log: log, now: time.Now}
}

func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) load(ctx context.Context) (evaluationMap, error) {
	m := evaluationMap{}
	if _, err := s.kv.Get(ctx, store.KeyEvaluations, &m); err != nil {
		return nil, fmt.Errorf("failed to load evaluations: %w", err)
	}
	return m, nil
}

func (s *Store) save(ctx context.Context, m evaluationMap) error {
	if err := s.kv.Set(ctx, store.KeyEvaluations, m); err != nil {
		return fmt.Errorf("failed to save evaluations: %w", err)
	}
	return nil
}

// Get returns nil, nil when nothing is stored under key.
func (s *Store) Get(ctx context.Context, key string) (*models.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := all[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Save replaces whatever is stored under key. A zero timestamp is set to now.
func (s *Store) Save(ctx context.Context, key string, e models.Evaluation) (*models.Evaluation, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid evaluation: %w", err)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	next := maps.Clone(all)
	next[key] = e
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	s.log.Debugf("saved evaluation %s (%.2f points)", key, e.Total)
	return &e, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := all[key]; !ok {
		return fmt.Errorf("%s: %w", key, ErrEvaluationNotFound)
	}
	next := maps.Clone(all)
	delete(next, key)
	return s.save(ctx, next)
}

// DeleteForCourse removes every evaluation whose course is exactly one of
// courses and returns how many were removed. Nothing is written when none
// match.
func (s *Store) DeleteForCourse(ctx context.Context, courses ...string) (int, error) {
	match := courseSet(courses)
	if len(match) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	next := make(evaluationMap, len(all))
	removed := 0
	for k, e := range all {
		if match[e.Course] {
			removed++
			continue
		}
		next[k] = e
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(ctx, next); err != nil {
		return 0, err
	}
	s.log.Infof("removed %d evaluations of course %v", removed, courses)
	return removed, nil
}

type Entry struct {
	Key string `json:"key"`
	models.Evaluation
}

// List returns evaluations of any of courses, sorted by key. With no
// non-empty course it lists everything.
func (s *Store) List(ctx context.Context, courses ...string) ([]Entry, error) {
	match := courseSet(courses)

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(all))
	for k, e := range all {
		if len(match) > 0 && !match[e.Course] {
			continue
		}
		out = append(out, Entry{Key: k, Evaluation: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) All(ctx context.Context) (map[string]models.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) ReplaceAll(ctx context.Context, evaluations map[string]models.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if evaluations == nil {
		evaluations = map[string]models.Evaluation{}
	}
	return s.save(ctx, evaluations)
}

func courseSet(courses []string) map[string]bool {
	set := make(map[string]bool, len(courses))
	for _, c := range courses {
		if c != "" {
			set[c] = true
		}
	}
	return set
}
