// Package textutil provides the small text transformations shared by the
// archive and mail renderers: locale-aware capitalization of field keys and
// placeholder substitution for empty answers.
package textutil
