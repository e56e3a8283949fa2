package inbound

import "time"

type GenerateRequest struct {
	OperationID string `json:"operation_id"`
	Channel     string `json:"channel"`
	Recipient   string `json:"recipient"`
}

type GenerateResponse struct {
	OperationID string    `json:"operation_id"`
	Channel     string    `json:"channel"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ValidateRequest struct {
	OperationID string `json:"operation_id"`
	Code        string `json:"code"`
}

type ValidateResponse struct {
	Valid bool `json:"valid"`
}

type ConfigResponse struct {
	Length       int       `json:"length"`
	ExpirationMs int       `json:"expiration_time_ms"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ConfigUpdateRequest struct {
	Length       int `json:"length"`
	ExpirationMs int `json:"expiration_time_ms"`
}
