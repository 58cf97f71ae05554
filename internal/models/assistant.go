package models

import "encoding/json"

// AssistantRequest is the Assistant Proxy Endpoint request body.
// WeatherData is the dashboard's last current-conditions payload, kept as received.
type AssistantRequest struct {
	Message     string          `json:"message"`
	WeatherData json.RawMessage `json:"weatherData"`
}

// AssistantResponse is the success body of the Assistant Proxy Endpoint.
type AssistantResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the error body shared by both proxy endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
