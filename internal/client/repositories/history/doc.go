// Package history persists the drawings drawctl has uploaded or watched so
// that an interrupted watch can be resumed on the next run.
//
// Rows live in the local SQLite table "watches". Get returns (nil, nil) when
// a drawing is not remembered.
package history
