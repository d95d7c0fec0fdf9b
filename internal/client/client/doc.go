// Package client contains the drawctl side of the drawkeeper API.
//
// HTTPClient speaks the JSON REST API of the server: uploads, status
// reconciliation, listing and deletion. Non-2xx answers come back as
// *APIError, which unwraps to ErrUnauthorized, ErrNotFound or ErrUnavailable
// where the status code allows.
//
// InitDatabase opens the local SQLite watch history and applies its embedded
// goose migrations.
package client
