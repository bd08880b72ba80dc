// Package daemon coordinates the long-running TripFarm server process.
//
// It wires configuration, the archive builder, the mail transport, metrics
// and the fiber application into a single start/stop lifecycle. Startup logs
// whether mail delivery is configured so a missing credential is visible
// before the first respondent hits it.
//
// Keep orchestration logic here: request handling lives in internal/api and
// the submission pipeline in internal/intake.
package daemon
