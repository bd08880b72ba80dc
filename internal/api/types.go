package api

import "tripfarm/internal/intake"

// timestampFormat is used for RFC3339 timestamps in API payloads.
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Version is reported by /api/info.
const Version = "1.0.0"

// Route paths served by the intake API.
const (
	PathHealth = "/api/health"
	PathInfo   = "/api/info"
	PathSave   = "/api/salvar"
	PathMetric = "/metrics"
)

// User-facing response messages.
const (
	MessageSaved      = "Dados enviados com sucesso por email!"
	MessageHealthy    = "Servidor TripFarm funcionando!"
	MessageInfo       = "API TripFarm Backend"
	MessageInternal   = "Erro interno do servidor. Tente novamente."
	MessageNotFound   = "Rota não encontrada."
	MessageBodyTooBig = "Requisição muito grande."
	MessageBadRequest = "Requisição inválida."
)

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	Timestamp       string `json:"timestamp"`
	EmailConfigured bool   `json:"emailConfigured"`
}

// Endpoints lists the API routes advertised by /api/info.
type Endpoints struct {
	Health string `json:"health"`
	Info   string `json:"info"`
	Salvar string `json:"salvar"`
}

// InfoResponse is returned by GET /api/info.
type InfoResponse struct {
	Message   string    `json:"message"`
	Version   string    `json:"version"`
	Endpoints Endpoints `json:"endpoints"`
}

// SaveResponse is returned by a successful POST /api/salvar.
type SaveResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    intake.Summary `json:"data"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
