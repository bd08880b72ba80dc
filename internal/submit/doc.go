// Package submit posts completed forms to the intake server.
//
// A Controller guards against duplicate submits, adds tipo_formulario and a
// created_at timestamp, attaches the designated question's recording as the
// single "audio" part and performs exactly one request. It never retries.
package submit
