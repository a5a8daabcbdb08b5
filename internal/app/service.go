package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/backup"
	"github.com/shrimpsizemoose/semla/internal/comments"
	"github.com/shrimpsizemoose/semla/internal/courses"
	"github.com/shrimpsizemoose/semla/internal/evaluations"
	"github.com/shrimpsizemoose/semla/internal/export"
	"github.com/shrimpsizemoose/semla/internal/logging"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/rubrics"
	"github.com/shrimpsizemoose/semla/internal/scoring"
	"github.com/shrimpsizemoose/semla/internal/store"
)

var (
	ErrNoRubric          = errors.New("no rubric for evaluation")
	ErrMissingInstructor = errors.New("instructor header is missing")
)

type Service struct {
	Config *Config
	Store  store.Backend
	KV     *store.KV
	Log    *logging.Logger
	Auth   *Auth
	Tokens *TokenManager

	Courses     *courses.Registry
	Rubrics     *rubrics.Registry
	Evaluations *evaluations.Store
	Comments    *comments.Book
	Backup      *backup.Manager
	Grader      *scoring.Grader
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	backend, err := NewStore(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	auth, err := NewAuth(config)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	return NewServiceWith(config, backend, auth), nil
}

// NewServiceWith wires every registry on top of an already opened backend.
func NewServiceWith(config *Config, backend store.Backend, auth *Auth) *Service {
	log := logging.New(config.Logging.Debug)
	kv := store.NewKV(backend)

	s := &Service{
		Config:      config,
		Store:       backend,
		KV:          kv,
		Log:         log,
		Auth:        auth,
		Courses:     courses.NewRegistry(kv, log),
		Rubrics:     rubrics.NewRegistry(kv, log),
		Evaluations: evaluations.NewStore(kv, log),
		Comments:    comments.NewBook(kv, log),
		Grader:      &config.Scoring,
	}
	s.Backup = backup.NewManager(kv, s.Courses, s.Evaluations, s.Rubrics, log)
	if auth.Enabled() {
		s.Tokens = NewTokenManager(auth.Client(), config.Auth.TokenKeyTemplate, config.TokenTTL())
	}
	return s
}

func (s *Service) ValidateAuth(r *http.Request) error {
	if !s.Auth.Enabled() {
		return nil
	}

	instructor := r.Header.Get(s.Config.API.InstructorHeader)
	if instructor == "" {
		return ErrMissingInstructor
	}

	authHeader := r.Header.Get(s.Auth.tokenHeader)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return fmt.Errorf("Invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	return s.Auth.ValidateToken(r.Context(), instructor, token)
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

// ScoreEvaluation grades e against its rubric, or against the active rubric
// of its category when no rubric id is given, and stores it under its
// composite key. A course identifier that resolves is stored as the course
// code, the reference rubrics use.
func (s *Service) ScoreEvaluation(ctx context.Context, e models.Evaluation) (string, *models.Evaluation, error) {
	c, err := s.Courses.Get(ctx, e.Course)
	if err != nil {
		return "", nil, err
	}
	if c != nil {
		e.Course = c.Code
	}

	var rubric *models.Rubric
	if e.RubricID != "" {
		rubric, err = s.Rubrics.Get(ctx, e.RubricID)
	} else {
		rubric, err = s.Rubrics.Active(ctx, e.Type, e.Delivery, e.Course)
	}
	if err != nil {
		return "", nil, err
	}
	if rubric == nil {
		return "", nil, fmt.Errorf("%s %s/%s: %w", e.Course, e.Type, e.Delivery, ErrNoRubric)
	}

	if err := s.Grader.Evaluate(rubric, &e); err != nil {
		return "", nil, err
	}

	key := evaluations.Key(e.Course, e.Delivery, e.Type, e.Target)
	saved, err := s.Evaluations.Save(ctx, key, e)
	if err != nil {
		return "", nil, err
	}
	return key, saved, nil
}

// DeleteCourse removes a course and every evaluation recorded for it under
// its key or one of its unshared codes.
func (s *Service) DeleteCourse(ctx context.Context, id string) (int, error) {
	refs, err := s.Courses.Refs(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.Courses.Delete(ctx, id); err != nil {
		return 0, err
	}
	return s.Evaluations.DeleteForCourse(ctx, refs...)
}

// DeleteCourseEvaluations removes the evaluations of a course, keeping the
// course itself.
func (s *Service) DeleteCourseEvaluations(ctx context.Context, id string) (int, error) {
	refs, err := s.Courses.Refs(ctx, id)
	if err != nil {
		return 0, err
	}
	if refs == nil {
		return 0, fmt.Errorf("%s: %w", id, courses.ErrCourseNotFound)
	}
	return s.Evaluations.DeleteForCourse(ctx, refs...)
}

// NewExporter builds a course exporter writing to w. A nil writer is enough
// for summaries and grade re-export.
func (s *Service) NewExporter(w export.SheetWriter) *export.Exporter {
	return export.NewExporter(s.Courses, s.Rubrics, s.Evaluations, s.Grader, w, s.Log)
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Auth.Close(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
