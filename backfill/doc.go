// Package backfill seals note bodies that were stored before encryption was
// enabled.
//
// A Backfiller pages through every note in ID order, encrypts plaintext
// bodies under their owner's key on a worker pool and writes them back with
// a conditional swap, so a body edited while the job runs is left alone.
// Already sealed bodies are skipped, which makes the job safe to rerun.
package backfill
