package rubrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/semla/internal/logging"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
	"github.com/shrimpsizemoose/semla/internal/store/memory"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(store.NewKV(memory.NewStore()), logging.Nop())
	reg.WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) })
	n := 0
	reg.newID = func() string {
		n++
		return fmt.Sprintf("r%02d", n)
	}
	return reg
}

func sampleRubric(name string) models.Rubric {
	return models.Rubric{
		Name:     name,
		Type:     models.RubricGroup,
		Delivery: models.DeliveryFirst,
		Courses:  []string{"EPM-B01"},
		Criteria: []models.Criterion{
			{
				Title:     "Planteamiento",
				Weight:    60,
				MaxPoints: 3,
				Levels: []models.Level{
					{Min: 0, Max: 1, Title: "Insuficiente"},
					{Min: 1, Max: 3, Title: "Sobresaliente"},
				},
			},
			{
				Title:     "Presentación",
				Weight:    40,
				MaxPoints: 2,
				Levels: []models.Level{
					{Min: 0, Max: 2, Title: "Único"},
				},
			},
		},
	}
}

func TestSaveGeneratesMonotonicCodes(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	var codes []string
	for i := 1; i <= 3; i++ {
		saved, err := reg.Save(ctx, sampleRubric(fmt.Sprintf("Rubrica %d", i)))
		require.NoError(t, err)
		assert.Equal(t, i, saved.Version)
		codes = append(codes, saved.Code)
	}
	assert.Equal(t, []string{"RGE1-EPMV1", "RGE1-EPMV2", "RGE1-EPMV3"}, codes)
}

func TestSaveFillsDefaults(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	r := sampleRubric("Sin curso")
	r.Courses = nil
	r.Type = models.RubricIndividual
	r.Delivery = models.DeliveryFinal

	saved, err := reg.Save(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "r01", saved.ID)
	assert.Equal(t, "RIEF-GENV1", saved.Code)
	assert.Equal(t, 5.0, saved.TotalPoints)
	assert.False(t, saved.CreatedAt.IsZero())

	_, err = reg.Save(ctx, models.Rubric{Name: "bad", Type: "X", Delivery: models.DeliveryFirst})
	assert.Error(t, err)
}

func TestSaveKeepsCodeOnUpdate(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	saved, err := reg.Save(ctx, sampleRubric("Original"))
	require.NoError(t, err)

	edit := *saved
	edit.Code = ""
	edit.Description = "ajustada"
	updated, err := reg.Save(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, saved.Code, updated.Code)
	assert.Equal(t, "ajustada", updated.Description)

	all, err := reg.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestActivationExclusivity(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	first := sampleRubric("Uno")
	first.Code = "CUSTOM-AV1"
	r1, err := reg.Save(ctx, first)
	require.NoError(t, err)

	second := sampleRubric("Dos")
	second.Code = "OTHER-BV1"
	r2, err := reg.Save(ctx, second)
	require.NoError(t, err)

	other := sampleRubric("Otra entrega")
	other.Delivery = models.DeliverySecond
	other.Active = true
	r3, err := reg.Save(ctx, other)
	require.NoError(t, err)

	_, err = reg.Activate(ctx, r1.ID)
	require.NoError(t, err)
	_, err = reg.Activate(ctx, r2.ID)
	require.NoError(t, err)

	got1, err := reg.Get(ctx, r1.ID)
	require.NoError(t, err)
	got2, err := reg.Get(ctx, r2.ID)
	require.NoError(t, err)
	got3, err := reg.Get(ctx, r3.ID)
	require.NoError(t, err)

	assert.False(t, got1.Active)
	assert.True(t, got2.Active)
	assert.True(t, got3.Active, "different delivery is another category")

	active, err := reg.Active(ctx, models.RubricGroup, models.DeliveryFirst, "EPM-B01")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, r2.ID, active.ID)
}

func TestActivationBySharedBaseCode(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	a := sampleRubric("A")
	a.Code = "RGE1-EPMV1"
	a.Active = true
	ra, err := reg.Save(ctx, a)
	require.NoError(t, err)

	b := sampleRubric("B")
	b.Code = "RGE1-EPMV2"
	b.Courses = []string{"OTRO-B01"}
	b.Delivery = models.DeliverySecond
	rb, err := reg.Save(ctx, b)
	require.NoError(t, err)

	_, err = reg.Activate(ctx, rb.ID)
	require.NoError(t, err)

	got, err := reg.Get(ctx, ra.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestDeactivateAndMissing(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	r := sampleRubric("A")
	r.Active = true
	saved, err := reg.Save(ctx, r)
	require.NoError(t, err)

	got, err := reg.Deactivate(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = reg.Activate(ctx, "ghost")
	assert.ErrorIs(t, err, ErrRubricNotFound)

	missing, err := reg.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	none, err := reg.Active(ctx, models.RubricGroup, models.DeliveryFirst, "EPM-B01")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	saved, err := reg.Save(ctx, sampleRubric("A"))
	require.NoError(t, err)
	require.NoError(t, reg.Delete(ctx, saved.ID))
	assert.ErrorIs(t, reg.Delete(ctx, saved.ID), ErrRubricNotFound)
}

func TestListFilter(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	_, err := reg.Save(ctx, sampleRubric("A"))
	require.NoError(t, err)
	ind := sampleRubric("B")
	ind.Type = models.RubricIndividual
	ind.Courses = []string{"MAT-B02"}
	_, err = reg.Save(ctx, ind)
	require.NoError(t, err)

	list, err := reg.List(ctx, Filter{Type: models.RubricIndividual})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Name)

	list, err = reg.List(ctx, Filter{Course: "EPM-B01"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Name)
}

func TestSaveChecked(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	first, d, err := reg.SaveChecked(ctx, sampleRubric("Proyecto"))
	require.NoError(t, err)
	assert.Equal(t, ClassNew, d.Class)
	assert.Equal(t, 1, first.Version)

	t.Run("identical is reused", func(t *testing.T) {
		got, d, err := reg.SaveChecked(ctx, sampleRubric("  proyecto "))
		require.NoError(t, err)
		assert.Equal(t, ClassIdentical, d.Class)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("same content under another name is rejected", func(t *testing.T) {
		got, d, err := reg.SaveChecked(ctx, sampleRubric("Otra cosa"))
		assert.ErrorIs(t, err, ErrDuplicateContent)
		assert.Nil(t, got)
		assert.Equal(t, ClassContentDuplicate, d.Class)
		assert.Equal(t, first.ID, d.Existing.ID)
	})

	t.Run("same name new content is the next version", func(t *testing.T) {
		changed := sampleRubric("Proyecto")
		changed.Criteria[0].Weight = 50
		changed.Criteria[1].Weight = 50

		got, d, err := reg.SaveChecked(ctx, changed)
		require.NoError(t, err)
		assert.Equal(t, ClassNewVersion, d.Class)
		assert.Equal(t, 2, got.Version)
		assert.NotEqual(t, first.ID, got.ID)
		assert.Equal(t, "RGE1-EPMV2", got.Code)
	})

	t.Run("next version on another delivery starts its own code line", func(t *testing.T) {
		other := sampleRubric("Proyecto")
		other.Delivery = models.DeliverySecond
		other.Criteria[0].Weight = 70
		other.Criteria[1].Weight = 30

		got, d, err := reg.SaveChecked(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, ClassNewVersion, d.Class)
		assert.Equal(t, "RGE2-EPMV1", got.Code)
		assert.Equal(t, 1, got.Version)
		assert.Equal(t, 1, d.Version)
	})

	all, err := reg.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	_, err := reg.Save(ctx, sampleRubric("A"))
	require.NoError(t, err)

	require.NoError(t, reg.ReplaceAll(ctx, map[string]models.Rubric{"x": sampleRubric("X")}))
	all, err := reg.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "x", all["x"].ID)
}
