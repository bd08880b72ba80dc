// Package main hosts the TripFarm CLI entrypoint and command graph.
//
// The Cobra command tree serves the intake endpoint (run), checks readiness
// (verify, health), posts answers from the terminal (submit) and scaffolds
// configuration. Behavior lives in the internal packages; commands here only
// resolve configuration and render results.
package main
