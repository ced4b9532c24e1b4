package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// Identity is the per-request authenticated principal. It is created by the
// auth middleware after the token's subject has been re-resolved against the
// user store, read by downstream handlers, and discarded with the request.
type Identity struct {
	UserID   string
	Username string
	Roles    []string
}

// HasRole reports whether the identity carries the named role.
func (id Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

func identityFromContext(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(Identity)
	if !ok || identity.UserID == "" {
		return Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

func withIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
