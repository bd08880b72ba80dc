// Package capture records spoken answers for the TripFarm forms.
//
// A Recorder drives one record/stop/play control group bound to a question.
// It runs an explicit idle/recording/stopped state machine, opens a Device
// for each take, rejects takes above the size limit and stores accepted ones
// in a per-form Session as base64 data URLs. The device is released on every
// exit path.
//
// ExecDevice and ExecPlayer back the interfaces with ffmpeg and ffplay for
// the command-line client; tests use in-memory fakes.
package capture
