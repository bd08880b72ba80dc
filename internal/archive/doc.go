// Package archive packages a submission into the ZIP bundle that is mailed
// to the TripFarm team.
//
// Every bundle holds respostas.json (machine-readable, fields in received
// order), respostas.txt (a readable summary) and, when present, the audio
// answer. Entries are deflated at the highest ratio and stamped with the
// submission time, so identical input yields identical bytes.
package archive
