// Package table reads the tabular files exchanged between the counting, statistics and
// visualization stages, and checks their shape.
package table
