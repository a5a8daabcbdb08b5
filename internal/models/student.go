package models

import "strings"

type Student struct {
	CanvasUserID  string `json:"canvasUserId,omitempty"`
	CanvasGroupID string `json:"canvasGroupId,omitempty"`
	Surname       string `json:"apellidos"`
	GivenName     string `json:"nombres"`
	Email         string `json:"correo"`
	Course        string `json:"curso"`
	Group         string `json:"grupo"`
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.GivenName + " " + s.Surname)
}

// Identity is the email when present, the external id otherwise.
func (s Student) Identity() string {
	if email := strings.ToLower(strings.TrimSpace(s.Email)); email != "" {
		return email
	}
	return s.CanvasUserID
}
