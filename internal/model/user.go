package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User owns wallets and the transactions recorded against them.
type User struct {
	ID           int       `json:"id"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanActAs reports whether a caller with role may touch data owned by ownerID.
func CanActAs(callerID int, role string, ownerID int) bool {
	return role == RoleAdmin || callerID == ownerID
}
