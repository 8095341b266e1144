// Package stores persists analysis history in SQLite.
//
// A session is one analysis run of one engine on one position. Each accepted
// principal variation is stored as a line of its session, together with the
// search statistics displayed at that moment. Engine events such as spawn
// failures and incomplete handshakes are kept in their own table.
//
// The schema is managed with embedded golang-migrate migrations.
package stores
