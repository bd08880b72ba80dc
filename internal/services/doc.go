// Package services defines shared plumbing consumed by the intake pipeline
// and its HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation IDs and form types for
//     logging.
//   - Structured error markers plus the Wrap helper, and HTTPStatus which
//     turns those markers into response codes (400, 413 or an opaque 500).
package services
