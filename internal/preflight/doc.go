// Package preflight provides readiness checks for the mail transport and
// the filesystem paths TripFarm depends on.
//
// The CLI "tripfarm verify" command runs RunAll and prints one row per
// check. The SMTP check dials and authenticates once without sending mail,
// and failures carry a hint from mailer.Diagnose (app password, API key
// shape, DNS, blocked port).
//
// Each check is gated by its config value: an empty static_dir or log dir is
// skipped.
package preflight
