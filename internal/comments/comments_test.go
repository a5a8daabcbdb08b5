package comments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/semla/internal/logging"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
	"github.com/shrimpsizemoose/semla/internal/store/memory"
)

func setupBook(t *testing.T) *Book {
	t.Helper()
	current := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return NewBook(store.NewKV(memory.NewStore()), logging.Nop()).WithClock(func() time.Time {
		current = current.Add(time.Minute)
		return current
	})
}

func TestAddAndList(t *testing.T) {
	ctx := context.Background()
	b := setupBook(t)

	_, err := b.Add(ctx, models.Comment{Course: "EPM-1", Group: "G2", Text: "segundo grupo"})
	require.NoError(t, err)
	first, err := b.Add(ctx, models.Comment{Course: "EPM-1", Group: "G1", Text: "  buen avance ", Author: "prof"})
	require.NoError(t, err)
	assert.Equal(t, "buen avance", first.Text)
	_, err = b.Add(ctx, models.Comment{Course: "EPM-1", Group: "G1", Text: "falta bibliografía"})
	require.NoError(t, err)
	_, err = b.Add(ctx, models.Comment{Course: "MAT-1", Group: "G1", Text: "otro curso"})
	require.NoError(t, err)

	thread, err := b.List(ctx, "EPM-1", "G1")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "buen avance", thread[0].Text)
	assert.Equal(t, "falta bibliografía", thread[1].Text)
	assert.True(t, thread[0].CreatedAt.Before(thread[1].CreatedAt))

	course, err := b.List(ctx, "EPM-1", "")
	require.NoError(t, err)
	require.Len(t, course, 3)
	assert.Equal(t, "G1", course[0].Group)
	assert.Equal(t, "G2", course[2].Group)

	empty, err := b.List(ctx, "EPM-1", "G9")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAddRejectsBlank(t *testing.T) {
	b := setupBook(t)
	_, err := b.Add(context.Background(), models.Comment{Course: "EPM-1", Group: "G1", Text: "   "})
	assert.Error(t, err)
}
