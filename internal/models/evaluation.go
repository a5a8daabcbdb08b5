package models

import "time"

type CriterionScore struct {
	Criterion int     `json:"criterioIndex" validate:"gte=0"`
	Level     int     `json:"nivelIndex"`
	Points    float64 `json:"puntos" validate:"gte=0"`
}

// Evaluation is a scored rubric for one target: a group id or a student email.
type Evaluation struct {
	Course    string           `json:"cursoNombre" validate:"required"`
	Delivery  DeliveryType     `json:"entregaId" validate:"required,oneof=E1 E2 EF"`
	Type      RubricType       `json:"tipo" validate:"required,oneof=G I"`
	Target    string           `json:"targetId" validate:"required"`
	RubricID  string           `json:"rubricaId"`
	Scores    []CriterionScore `json:"puntuaciones" validate:"dive"`
	Total     float64          `json:"puntuacionTotal"`
	Timestamp time.Time        `json:"fecha"`
	Comment   string           `json:"comentario,omitempty"`
}

func (e *Evaluation) Validate() error {
	return validate.Struct(e)
}
