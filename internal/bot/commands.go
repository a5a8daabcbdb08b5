package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/cohort"
	"github.com/shrimpsizemoose/semla/internal/rubrics"
	"github.com/shrimpsizemoose/semla/internal/search"
)

const (
	userHelp = `Comandos disponibles:
/cursos - Lista de cursos
/buscar <texto> - Buscar estudiantes por nombre, correo o id
/repetidos - Estudiantes inscritos en más de una versión de un curso
/rubricas [curso] - Rúbricas del curso
/help - Mostrar este mensaje`

	adminHelp = userHelp + `

Administración:
/activar <id> - Activar una rúbrica y desactivar las de su categoría
/curso <id> - Asociar este chat a un curso
/token - Obtener un token para la API`

	usageHint = "Usa los comandos para interactuar con el bot. Envía /help para ver la lista."

	maxMessageLen = 4000
	searchLimit   = 20
)

type request struct {
	chatID   int64
	userID   int64
	username string
	args     string
}

type commandHandler func(context.Context, request) (string, error)

func (b *Bot) routeUserCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"start":     b.handleStart,
		"help":      b.handleHelp,
		"cursos":    b.handleCourses,
		"buscar":    b.handleSearch,
		"repetidos": b.handleRepeats,
		"rubricas":  b.handleRubrics,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) routeAdminCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"activar": b.handleActivate,
		"curso":   b.handleSetChatCourse,
		"token":   b.handleToken,
	}
	handler, found := commands[cmd]
	return handler, found
}

// answer routes a command and returns the reply text.
func (b *Bot) answer(ctx context.Context, cmd string, req request) (string, error) {
	if handler, ok := b.routeUserCommands(cmd); ok {
		return handler(ctx, req)
	}
	if handler, ok := b.routeAdminCommands(cmd); ok {
		if !b.admins[req.userID] {
			return "Este comando es solo para administradores.", nil
		}
		return handler(ctx, req)
	}
	return usageHint, nil
}

func (b *Bot) handleStart(_ context.Context, req request) (string, error) {
	text := "¡Hola! Te ayudo a consultar cursos, estudiantes y rúbricas.\n\n"
	if b.admins[req.userID] {
		text += "Eres administrador. Usa /help para ver los comandos."
	} else {
		text += "Usa /cursos para empezar."
	}
	return text, nil
}

func (b *Bot) handleHelp(_ context.Context, req request) (string, error) {
	if b.admins[req.userID] {
		return adminHelp, nil
	}
	return userHelp, nil
}

func (b *Bot) handleCourses(ctx context.Context, _ request) (string, error) {
	list, err := b.service.Courses.List(ctx)
	if err != nil {
		return "", err
	}
	return formatCourses(list), nil
}

func (b *Bot) handleSearch(ctx context.Context, req request) (string, error) {
	q := strings.TrimSpace(req.args)
	if q == "" {
		return "Uso: /buscar <texto>", nil
	}
	list, err := b.service.Courses.List(ctx)
	if err != nil {
		return "", err
	}
	return formatHits(q, search.Search(list, q, searchLimit)), nil
}

func (b *Bot) handleRepeats(ctx context.Context, _ request) (string, error) {
	list, err := b.service.Courses.List(ctx)
	if err != nil {
		return "", err
	}
	return formatRepeats(cohort.Repeats(list)), nil
}

func (b *Bot) handleRubrics(ctx context.Context, req request) (string, error) {
	course := strings.TrimSpace(req.args)
	if course == "" && b.service.Tokens != nil {
		var err error
		if course, err = b.service.Tokens.FetchCourseByChatID(ctx, req.chatID); err != nil {
			return "", err
		}
	}
	if course == "" {
		return "Uso: /rubricas <curso>", nil
	}

	c, err := b.service.Courses.Get(ctx, course)
	if err != nil {
		return "", err
	}
	code := course
	if c != nil {
		code = c.Code
	}

	list, err := b.service.Rubrics.List(ctx, rubrics.Filter{Course: code})
	if err != nil {
		return "", err
	}
	return formatRubrics(code, list), nil
}

func (b *Bot) handleActivate(ctx context.Context, req request) (string, error) {
	id := strings.TrimSpace(req.args)
	if id == "" {
		return "Uso: /activar <id>", nil
	}
	r, err := b.service.Rubrics.Activate(ctx, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Rúbrica %s (%s) activada.", r.Code, r.Name), nil
}

func (b *Bot) handleSetChatCourse(ctx context.Context, req request) (string, error) {
	if b.service.Tokens == nil {
		return "La asociación de chats requiere autenticación habilitada.", nil
	}
	id := strings.TrimSpace(req.args)
	if id == "" {
		return "Uso: /curso <id>", nil
	}
	c, err := b.service.Courses.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if c == nil {
		return fmt.Sprintf("No encontré el curso %s.", id), nil
	}
	if err := b.service.Tokens.AssociateChatWithCourse(ctx, req.chatID, c.Key, req.userID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Chat asociado a %s (%s).", c.Code, c.Name), nil
}

func (b *Bot) handleToken(ctx context.Context, req request) (string, error) {
	if b.service.Tokens == nil {
		return "La autenticación no está habilitada.", nil
	}
	instructor := req.username
	if instructor == "" {
		instructor = strconv.FormatInt(req.userID, 10)
	}
	info, created, err := b.service.Tokens.FetchOrCreateToken(ctx, instructor)
	if err != nil {
		return "", err
	}
	if created {
		return fmt.Sprintf("Nuevo token para %s:\n%s", instructor, info.Token), nil
	}
	return fmt.Sprintf("Token de %s:\n%s\nUsado %d veces.", instructor, info.Token, info.RequestCount), nil
}
