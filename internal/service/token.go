package service

import "github.com/google/uuid"

// TokenIssuer produces reservation check-in tokens.
type TokenIssuer interface {
	Issue() string
}

// UUIDTokens issues random version 4 UUIDs.
type UUIDTokens struct{}

func (UUIDTokens) Issue() string { return uuid.NewString() }

// TokenFunc adapts a plain function to TokenIssuer.
type TokenFunc func() string

func (f TokenFunc) Issue() string { return f() }
