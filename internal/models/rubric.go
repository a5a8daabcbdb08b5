package models

import (
	"fmt"
	"time"
)

type DeliveryType string

const (
	DeliveryFirst  DeliveryType = "E1"
	DeliverySecond DeliveryType = "E2"
	DeliveryFinal  DeliveryType = "EF"
)

var Deliveries = []DeliveryType{DeliveryFirst, DeliverySecond, DeliveryFinal}

// Index is the position of the delivery in a GradeRow.
func (d DeliveryType) Index() int {
	for i, v := range Deliveries {
		if v == d {
			return i
		}
	}
	return -1
}

func ParseDeliveryType(s string) (DeliveryType, error) {
	d := DeliveryType(s)
	if d.Index() < 0 {
		return "", fmt.Errorf("unknown delivery type %q", s)
	}
	return d, nil
}

type RubricType string

const (
	RubricGroup      RubricType = "G"
	RubricIndividual RubricType = "I"
)

func ParseRubricType(s string) (RubricType, error) {
	switch RubricType(s) {
	case RubricGroup, RubricIndividual:
		return RubricType(s), nil
	}
	return "", fmt.Errorf("unknown rubric type %q", s)
}

type Level struct {
	Min         float64 `json:"puntosMin" validate:"gte=0"`
	Max         float64 `json:"puntosMax" validate:"gtefield=Min"`
	Title       string  `json:"titulo"`
	Description string  `json:"descripcion"`
	Color       string  `json:"color,omitempty"`
}

type Criterion struct {
	Title       string  `json:"titulo" validate:"required"`
	Description string  `json:"descripcion,omitempty"`
	Weight      float64 `json:"peso" validate:"gte=0,lte=100"`
	MaxPoints   float64 `json:"puntajeMaximo" validate:"gte=0"`
	Levels      []Level `json:"niveles" validate:"dive"`
}

type Rubric struct {
	ID          string       `json:"id"`
	Name        string       `json:"nombre" validate:"required"`
	Description string       `json:"descripcion"`
	Criteria    []Criterion  `json:"criterios" validate:"dive"`
	Code        string       `json:"codigo,omitempty"`
	Version     int          `json:"version"`
	Active      bool         `json:"activa"`
	Courses     []string     `json:"cursosAsociados"`
	Delivery    DeliveryType `json:"tipoEntrega" validate:"required,oneof=E1 E2 EF"`
	Type        RubricType   `json:"tipoRubrica" validate:"required,oneof=G I"`
	TotalPoints float64      `json:"puntuacionTotal"`
	CreatedAt   time.Time    `json:"fechaCreacion"`
	UpdatedAt   time.Time    `json:"fechaActualizacion"`
}

func (r *Rubric) Validate() error {
	return validate.Struct(r)
}

// SharesCourse reports whether both rubrics name at least one common course.
func (r *Rubric) SharesCourse(other *Rubric) bool {
	for _, a := range r.Courses {
		for _, b := range other.Courses {
			if a == b {
				return true
			}
		}
	}
	return false
}
