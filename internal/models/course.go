package models

import "time"

// CourseMeta is everything about a course except its roster.
type CourseMeta struct {
	Key       string     `json:"codigoUnico"`
	Code      string     `json:"codigo" validate:"required"`
	AltCode   string     `json:"codigoAlterno,omitempty"`
	ShortCode string     `json:"codigoCorto,omitempty"`
	BaseCode  string     `json:"codigoBase"`
	Name      string     `json:"nombre"`
	ShortName string     `json:"nombreCorto,omitempty"`
	Block     string     `json:"bloque,omitempty"`
	Intake    string     `json:"ingreso,omitempty" validate:"omitempty,oneof=A B C E"`
	Modality  string     `json:"modalidad,omitempty"`
	Color     string     `json:"color,omitempty" validate:"omitempty,hexcolor"`
	CreatedAt time.Time  `json:"fechaCreacion"`
	GradeFile *GradeFile `json:"archivoCalificaciones,omitempty"`
}

type Course struct {
	CourseMeta
	Students []Student `json:"estudiantes"`
}

type GradeFile struct {
	FileName   string     `json:"nombreArchivo,omitempty"`
	Original   string     `json:"contenidoOriginal"`
	Rows       []GradeRow `json:"calificaciones"`
	UploadedAt time.Time  `json:"fechaCarga"`
}

// GradeRow holds the three delivery scores in E1, E2, EF order.
type GradeRow struct {
	ExternalID string     `json:"id"`
	Scores     [3]float64 `json:"entregas"`
}

func (m *CourseMeta) Validate() error {
	return validate.Struct(m)
}
