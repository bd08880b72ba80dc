// Package form models a single questionnaire submission.
//
// A Submission keeps the four required answers as typed fields and every
// received field, required or not, in an ordered list so the archive can
// reproduce the answers in the order the respondent saw them. At most one
// audio attachment is carried per submission.
package form
