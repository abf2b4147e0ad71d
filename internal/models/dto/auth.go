package dto

import "github.com/ctrlhora/ctrlhora-be/internal/models"

// LoginRequest mirrors the OAuth2 password form: the RUT travels in "rut"
// or, for password-grant clients, in "username".
type LoginRequest struct {
	RUT      string
	Password string
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type GPSRequest struct {
	GPSPosition string `json:"gps_position"`
}

type EntryResponse struct {
	Message string                  `json:"message"`
	Record  models.AttendanceRecord `json:"record"`
}

type RecordsResponse struct {
	Records []models.AttendanceRecord `json:"records"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
