package domain

type ContextKey string

const UserContextKey ContextKey = "user"

// User is the partial identity reconstructed from session token claims.
// Authentication issuance itself lives outside this service.
type User struct {
	ID    string `json:"id"` // UUID
	Email string `json:"email"`
	Role  string `json:"role"`
}
