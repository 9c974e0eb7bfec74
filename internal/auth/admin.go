// Package auth gates destructive operations behind a shared admin secret.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminGate authorizes destructive operations. The configured key is
// hashed once at startup; only the hash is kept in memory.
type AdminGate struct {
	keyHash []byte
}

func NewAdminGate(key string) (*AdminGate, error) {
	if key == "" {
		return nil, fmt.Errorf("admin key must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin key: %w", err)
	}
	return &AdminGate{keyHash: hash}, nil
}

// Authorize reports whether the provided key matches the configured
// secret. Any mismatch, including an empty key, is unauthorized.
func (g *AdminGate) Authorize(provided string) bool {
	if provided == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.keyHash, []byte(provided)) == nil
}
