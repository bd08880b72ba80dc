// Package api serves the TripFarm intake HTTP surface on top of fiber.
//
// # Routes
//
// GET /api/health: liveness plus whether mail delivery is configured.
//
// GET /api/info: service name, version and the advertised endpoints.
//
// POST /api/salvar: decodes a submission, hands it to the intake pipeline and
// answers with the accepted summary.
//
// GET /metrics: Prometheus exposition for the process registry.
//
// Every other GET is served from the static directory, falling back to
// index.html so the form UI can own client-side routing. Unknown /api paths
// answer 404 in the JSON envelope.
//
// # Request Bodies
//
// multipart/form-data is the primary encoding; urlencoded and JSON bodies are
// accepted too. Field order is preserved for all three because it drives the
// order of the archived answers. Only one file part, named "audio", is
// allowed, and it is bounded by intake.max_attachment_mb.
//
// # Errors
//
// Failures share the {success:false, error} envelope. Client errors carry a
// Portuguese message for the respondent; server errors return a generic
// notice and the details go to the log with the request ID.
package api
