// Package nlp implements the Nepali query pipeline: Unicode normalisation,
// stopword removal and suffix stemming.
//
// Everything here is pure and safe for concurrent use. The stopword set and the
// suffix table are built once at package init and never mutated.
package nlp
