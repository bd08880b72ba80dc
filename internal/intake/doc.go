// Package intake runs the single-pass submission pipeline: validate the
// required answers, build the archive, hand it to the mail transport and
// report a receipt. Nothing is persisted; a failed dispatch is reported to
// the caller and not retried.
package intake
