// Package auth reports session transitions to the sync layer.
//
// The client has no login flow of its own: it is handed a bearer token issued
// by the backend. [TokenProvider] derives the owner id from the token's "sub"
// claim, attaches the token to the remote adapter and publishes
// [models.AuthState] values that the session watcher turns into sync
// start/stop calls.
package auth
