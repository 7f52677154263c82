// Package store persists users, balances and the friend graph behind the
// game server. All chip mutations flow through it: table buy-ins debit a
// balance, leaving a table credits the remaining stack back.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound marks a lookup for a user that does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate marks an insert that collides with an existing row.
	ErrDuplicate = errors.New("store: duplicate")
	// ErrInsufficientBalance rejects a debit that would go negative.
	ErrInsufficientBalance = errors.New("store: insufficient balance")
	// ErrBadCredentials rejects a login with a wrong username or password.
	ErrBadCredentials = errors.New("store: bad credentials")
	// ErrBadInput rejects a signup with missing required fields.
	ErrBadInput = errors.New("store: bad input")
)

// User is one account row. PasswordHash never leaves the package.
type User struct {
	ID       int64
	Username string
	FullName string
	Email    string
	Phone    string
	DOB      string
	Country  string
	Gender   string
	Balance  int64
}

// NewUser carries the signup fields.
type NewUser struct {
	Username string
	Password string
	FullName string
	Email    string
	Phone    string
	DOB      string
	Country  string
	Gender   string
}

// LeaderboardEntry is one scoreboard row.
type LeaderboardEntry struct {
	Username string
	Balance  int64
}

// Friend is one confirmed friendship as seen by the querying user.
type Friend struct {
	UserID   int64
	Username string
}

// Store is the persistence boundary. The dispatch layer is the only caller;
// it never hands connections or transactions across handler invocations.
type Store interface {
	// CreateUser inserts an account with a hashed password and the
	// configured starting balance. Duplicate usernames (case-insensitive)
	// return ErrDuplicate.
	CreateUser(ctx context.Context, nu NewUser, startingBalance int64) (*User, error)

	// Authenticate verifies a username/password pair and returns the
	// account. Unknown users and wrong passwords are indistinguishable:
	// both return ErrBadCredentials.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// GetUser fetches an account by id.
	GetUser(ctx context.Context, id int64) (*User, error)

	// AdjustBalance credits (positive) or debits (negative) a balance in a
	// single statement and returns the new value. A debit below zero fails
	// with ErrInsufficientBalance and changes nothing.
	AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error)

	// Leaderboard returns the top accounts by balance, richest first.
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)

	// Friends lists confirmed friends of a user.
	Friends(ctx context.Context, userID int64) ([]Friend, error)

	// FriendRequests lists usernames with a pending request to the user.
	FriendRequests(ctx context.Context, userID int64) ([]string, error)

	// AddFriendRequest records a pending request to the named user. If the
	// named user already has a pending request the other way, both sides
	// are confirmed instead.
	AddFriendRequest(ctx context.Context, fromID int64, toUsername string) error

	// AcceptFriend confirms a pending request from the named user.
	AcceptFriend(ctx context.Context, userID int64, fromUsername string) error

	// RemoveFriend deletes a friendship or pending request in either
	// direction.
	RemoveFriend(ctx context.Context, userID int64, username string) error

	Close() error
}
