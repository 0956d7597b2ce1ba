package domain

import "errors"

// User identifies an actor issuing ledger commands. Users come from the
// chat-platform command layer; the ledger only records their ID.
type User struct {
	ID   string
	Name string
	Role Role
}

// Role is a user's access level.
type Role string

const (
	// RoleAdmin may override balances and issue every command.
	RoleAdmin Role = "admin"

	// RoleTrader may trade, undo and redo, but not override balances.
	RoleTrader Role = "trader"

	// RoleViewer may only read balances and the transaction log.
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleAdmin:  true,
	RoleTrader: true,
	RoleViewer: true,
}

// IsValid checks if the role is a known role.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanTrade reports whether the role may mutate the ledger through trades.
func (r Role) CanTrade() bool {
	return r == RoleAdmin || r == RoleTrader
}

// CanOverride reports whether the role may override balances directly.
func (r Role) CanOverride() bool {
	return r == RoleAdmin
}

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
