// Package answer turns a question into a cited answer over an owner's notes.
//
// A Synthesizer lists the owner's decrypted notes, leaves out redacted ones,
// ranks the rest with search.Ranker and sends the working set to the
// generator in a single call. Nothing is retried; upstream errors are
// returned as they are.
package answer
