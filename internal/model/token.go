package model

// TokenManager issues and verifies caller identity tokens.
type TokenManager interface {
	Issue(identity Identity) (string, error)
	Parse(token string) (Identity, error)
}
