// Package cli implements drawctl, the command-line client of drawkeeper.
//
// Commands upload drawings, check or watch their translation, list and delete
// them, and mint bearer tokens for local setups. Watched drawings are kept in
// a local SQLite history so that "drawctl watch" without arguments resumes
// whatever was still in flight when the previous run stopped.
package cli
