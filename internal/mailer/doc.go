// Package mailer delivers submission bundles over SMTP.
//
// Sender is the transport seam used by the intake pipeline. NewSender returns
// an SMTP implementation built on go-mail when credentials are configured and
// an implementation that always fails with ErrNotConfigured otherwise, so the
// server can start and report the problem through its health endpoint.
// Composer renders the subject line and HTML summary for a submission.
package mailer
