package models

import "time"

type Comment struct {
	Course    string    `json:"curso" validate:"required"`
	Group     string    `json:"grupo" validate:"required"`
	Author    string    `json:"autor,omitempty"`
	Text      string    `json:"texto" validate:"required"`
	CreatedAt time.Time `json:"fecha"`
}

func (c *Comment) Validate() error {
	return validate.Struct(c)
}
