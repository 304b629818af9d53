// Package pipeline turns probe results into face index records. For
// each existing profile it downloads a bounded number of avatar
// candidates, runs them through the external face encoder, and inserts
// the resulting embeddings. Every step is per-item isolated: one bad
// image never costs more than itself.
package pipeline
