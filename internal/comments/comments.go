// Package comments keeps append-only notes per course group.
package comments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shrimpsizemoose/semla/internal/logging"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type commentMap map[string][]models.Comment

func threadKey(course, group string) string {
	return course + "::" + group
}

type Book struct {
	mu  sync.Mutex
	kv  *store.KV
	log *logging.Logger
	now func() time.Time
}

func NewBook(kv *store.KV, log *logging.Logger) *Book {
	return &Book{kv: kv, log: log, now: time.Now}
}

func (b *Book) WithClock(now func() time.Time) *Book {
	b.now = now
	return b
}

func (b *Book) load(ctx context.Context) (commentMap, error) {
	m := commentMap{}
	if _, err := b.kv.Get(ctx, store.KeyComments, &m); err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	return m, nil
}

// Add appends c to its (course, group) thread.
func (b *Book) Add(ctx context.Context, c models.Comment) (*models.Comment, error) {
	c.Text = strings.TrimSpace(c.Text)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid comment: %w", err)
	}
	c.CreatedAt = b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	k := threadKey(c.Course, c.Group)
	next := make(commentMap, len(all)+1)
	for key, thread := range all {
		next[key] = thread
	}
	next[k] = append(append([]models.Comment(nil), all[k]...), c)

	if err := b.kv.Set(ctx, store.KeyComments, next); err != nil {
		return nil, fmt.Errorf("failed to save comments: %w", err)
	}
	b.log.Debugf("comment added to %s", k)
	return &c, nil
}

// List returns a thread oldest first. An empty group returns every thread of
// the course, ordered by group.
func (b *Book) List(ctx context.Context, course, group string) ([]models.Comment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	if group != "" {
		return append([]models.Comment{}, all[threadKey(course, group)]...), nil
	}

	var keys []string
	for k := range all {
		if strings.HasPrefix(k, threadKey(course, "")) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := []models.Comment{}
	for _, k := range keys {
		out = append(out, all[k]...)
	}
	return out, nil
}
