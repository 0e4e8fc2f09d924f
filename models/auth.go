package models

// AuthStatus is the session state reported by an auth provider.
type AuthStatus string

const (
	AuthLoading         AuthStatus = "loading"
	AuthAuthenticated   AuthStatus = "authenticated"
	AuthUnauthenticated AuthStatus = "unauthenticated"
)

// AuthState is one session transition. OwnerID is set only for
// AuthAuthenticated.
type AuthState struct {
	Status  AuthStatus
	OwnerID string
}
