package integrator

import "github.com/google/uuid"

// TokenGenerator produces run tokens used to correlate log lines and run
// ledger records for one integration call.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens, which keeps
// the run ledger ordered by creation time.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// StaticGenerator returns the same fixed token on every call. Used in
// tests and golden traces where deterministic output matters.
type StaticGenerator struct {
	Token string
}

func (g StaticGenerator) Generate() string { return g.Token }
