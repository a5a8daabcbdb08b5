package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/courses"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store/memory"
)

const adminID = 42

func setupBot(t *testing.T) *Bot {
	t.Helper()
	config := &app.Config{}
	config.Server.Port = ":0"
	service := app.NewServiceWith(config, memory.NewStore(), &app.Auth{})
	return newBot(service, []int64{adminID})
}

func ana() models.Student {
	return models.Student{CanvasUserID: "1001", Surname: "Soto", GivenName: "Ana", Email: "asoto@uni.edu", Group: "G1"}
}

func TestHelpDependsOnRole(t *testing.T) {
	b := setupBot(t)
	ctx := context.Background()

	text, err := b.answer(ctx, "help", request{userID: 7})
	require.NoError(t, err)
	assert.Equal(t, userHelp, text)

	text, err = b.answer(ctx, "help", request{userID: adminID})
	require.NoError(t, err)
	assert.Equal(t, adminHelp, text)

	text, err = b.answer(ctx, "nada", request{userID: 7})
	require.NoError(t, err)
	assert.Equal(t, usageHint, text)
}

func TestAdminCommandsRejected(t *testing.T) {
	b := setupBot(t)
	text, err := b.answer(context.Background(), "activar", request{userID: 7, args: "r1"})
	require.NoError(t, err)
	assert.Contains(t, text, "solo para administradores")
}

func TestCoursesAndSearch(t *testing.T) {
	b := setupBot(t)
	ctx := context.Background()

	text, err := b.answer(ctx, "cursos", request{})
	require.NoError(t, err)
	assert.Equal(t, "No hay cursos registrados.", text)

	_, err = b.service.Courses.Create(ctx, courses.NewCourse{
		Code: "EPM-B01", Name: "Pensamiento Matemático", Block: "2024-1 BLOQUE 2", Intake: "A",
		Students: []models.Student{ana()},
	})
	require.NoError(t, err)

	text, err = b.answer(ctx, "cursos", request{})
	require.NoError(t, err)
	assert.Contains(t, text, "EPM-B01 Pensamiento Matemático (1 estudiantes) [2024A]")

	text, err = b.answer(ctx, "buscar", request{args: "soto"})
	require.NoError(t, err)
	assert.Contains(t, text, "Ana Soto <asoto@uni.edu>")

	text, err = b.answer(ctx, "buscar", request{args: "  "})
	require.NoError(t, err)
	assert.Equal(t, "Uso: /buscar <texto>", text)
}

func TestRubricsAndActivate(t *testing.T) {
	b := setupBot(t)
	ctx := context.Background()

	r, err := b.service.Rubrics.Save(ctx, models.Rubric{
		Name:     "Proyecto",
		Type:     models.RubricGroup,
		Delivery: models.DeliveryFirst,
		Courses:  []string{"EPM-B01"},
		Criteria: []models.Criterion{{Title: "Planteamiento", Weight: 100, MaxPoints: 4}},
	})
	require.NoError(t, err)

	text, err := b.answer(ctx, "rubricas", request{})
	require.NoError(t, err)
	assert.Equal(t, "Uso: /rubricas <curso>", text)

	text, err = b.answer(ctx, "activar", request{userID: adminID, args: r.ID})
	require.NoError(t, err)
	assert.Contains(t, text, "activada")

	text, err = b.answer(ctx, "rubricas", request{args: "EPM-B01"})
	require.NoError(t, err)
	assert.Contains(t, text, "✓ "+r.Code+" Proyecto v1")
}

func TestTokenRequiresAuth(t *testing.T) {
	b := setupBot(t)
	text, err := b.answer(context.Background(), "token", request{userID: adminID})
	require.NoError(t, err)
	assert.Equal(t, "La autenticación no está habilitada.", text)
}

func TestFormatRepeats(t *testing.T) {
	b := setupBot(t)
	ctx := context.Background()
	for _, code := range []string{"EPM-B01", "EPM-B02"} {
		_, err := b.service.Courses.Create(ctx, courses.NewCourse{Code: code, Name: code, Students: []models.Student{ana()}})
		require.NoError(t, err)
	}

	text, err := b.answer(ctx, "repetidos", request{})
	require.NoError(t, err)
	assert.Contains(t, text, "Ana Soto (asoto@uni.edu)")
	assert.Equal(t, "No hay estudiantes repetidos.", formatRepeats(nil))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"corto"}, splitMessage("corto", 10))

	chunks := splitMessage("aaaa\nbbbb\ncccc\n", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, chunks)

	chunks = splitMessage(strings.Repeat("x", 25), 10)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("x", 5), chunks[2])
}

func TestChatCourseAndToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	config := &app.Config{}
	config.Server.Port = ":0"
	config.Server.EnableAuth = true
	config.Auth.TokenKeyTemplate = "auth:{instructor}"
	auth := app.NewAuthWithClient(client, config.Auth.TokenKeyTemplate, "Authorization")
	b := newBot(app.NewServiceWith(config, memory.NewStore(), auth), []int64{adminID})
	ctx := context.Background()

	c, err := b.service.Courses.Create(ctx, courses.NewCourse{Code: "EPM-B01", Name: "Pensamiento"})
	require.NoError(t, err)
	_, err = b.service.Rubrics.Save(ctx, models.Rubric{
		Name: "Proyecto", Type: models.RubricGroup, Delivery: models.DeliveryFirst,
		Courses:  []string{"EPM-B01"},
		Criteria: []models.Criterion{{Title: "Planteamiento", Weight: 100, MaxPoints: 4}},
	})
	require.NoError(t, err)

	admin := request{chatID: 99, userID: adminID, username: "profe", args: c.Key}
	text, err := b.answer(ctx, "curso", admin)
	require.NoError(t, err)
	assert.Equal(t, "Chat asociado a EPM-B01 (Pensamiento).", text)

	text, err = b.answer(ctx, "rubricas", request{chatID: 99})
	require.NoError(t, err)
	assert.Contains(t, text, "Rúbricas de EPM-B01:")
	assert.Contains(t, text, "Proyecto v1")

	admin.args = ""
	text, err = b.answer(ctx, "token", admin)
	require.NoError(t, err)
	assert.Contains(t, text, "Nuevo token para profe:\nsk-semla-")

	text, err = b.answer(ctx, "token", admin)
	require.NoError(t, err)
	assert.Contains(t, text, "Token de profe:")
}
