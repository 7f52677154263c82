package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// SQLStore implements Store on database/sql. Both supported drivers accept
// $n placeholders and RETURNING, so the statements below are shared; only
// the autoincrement column in the schema differs.
type SQLStore struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database and bootstraps the schema. Supported
// drivers are "postgres" (lib/pq) and "sqlite3" (mattn/go-sqlite3).
func Open(driver, conninfo string) (*SQLStore, error) {
	switch driver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, conninfo)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// SQLite allows a single writer; a second pooled connection
		// would also see a distinct database under :memory:.
		db.SetMaxOpenConns(1)
	}
	s := &SQLStore{db: db, driver: driver}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
			id %s,
			username TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			fullname TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			dob TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			gender TEXT NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0
		)`, serial),
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower
			ON users (lower(username))`,
		`CREATE TABLE IF NOT EXISTS friendships (
			requester_id BIGINT NOT NULL,
			addressee_id BIGINT NOT NULL,
			accepted BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (requester_id, addressee_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: create tables: %w", err)
		}
	}
	return nil
}

const userColumns = "id, username, fullname, email, phone, dob, country, gender, balance"

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Phone,
		&u.DOB, &u.Country, &u.Gender, &u.Balance)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, nu NewUser, startingBalance int64) (*User, error) {
	username := strings.TrimSpace(nu.Username)
	if username == "" || nu.Password == "" {
		return nil, ErrBadInput
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM users WHERE lower(username) = lower($1)`,
		username).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, ErrDuplicate
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, fullname, email, phone, dob, country, gender, balance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+userColumns,
		username, string(hash), nu.FullName, nu.Email, nu.Phone,
		nu.DOB, nu.Country, nu.Gender, startingBalance)
	return scanUser(row)
}

func (s *SQLStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE lower(username) = lower($1)`,
		username).Scan(&hash)
	if err == sql.ErrNoRows {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`,
		username)
	return scanUser(row)
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *SQLStore) getUserByName(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`,
		username)
	return scanUser(row)
}

func (s *SQLStore) AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET balance = balance + $1
		 WHERE id = $2 AND balance + $1 >= 0
		 RETURNING balance`, delta, id).Scan(&balance)
	if err == sql.ErrNoRows {
		if _, gerr := s.GetUser(ctx, id); gerr != nil {
			return 0, gerr
		}
		return 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *SQLStore) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, balance FROM users
		 ORDER BY balance DESC, lower(username) ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Balance); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) Friends(ctx context.Context, userID int64) ([]Friend, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username FROM friendships f
		 JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END
		 WHERE (f.requester_id = $1 OR f.addressee_id = $1) AND f.accepted
		 ORDER BY lower(u.username)`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Friend
	for rows.Next() {
		var f Friend
		if err := rows.Scan(&f.UserID, &f.Username); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLStore) FriendRequests(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.username FROM friendships f
		 JOIN users u ON u.id = f.requester_id
		 WHERE f.addressee_id = $1 AND NOT f.accepted
		 ORDER BY lower(u.username)`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *SQLStore) AddFriendRequest(ctx context.Context, fromID int64, toUsername string) error {
	to, err := s.getUserByName(ctx, toUsername)
	if err != nil {
		return err
	}
	if to.ID == fromID {
		return ErrDuplicate
	}

	// A pending request the other way confirms both sides.
	res, err := s.db.ExecContext(ctx,
		`UPDATE friendships SET accepted = TRUE
		 WHERE requester_id = $1 AND addressee_id = $2`, to.ID, fromID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM friendships
		 WHERE requester_id = $1 AND addressee_id = $2`, fromID, to.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrDuplicate
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO friendships (requester_id, addressee_id, accepted)
		 VALUES ($1, $2, FALSE)`, fromID, to.ID)
	return err
}

func (s *SQLStore) AcceptFriend(ctx context.Context, userID int64, fromUsername string) error {
	from, err := s.getUserByName(ctx, fromUsername)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE friendships SET accepted = TRUE
		 WHERE requester_id = $1 AND addressee_id = $2 AND NOT accepted`,
		from.ID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) RemoveFriend(ctx context.Context, userID int64, username string) error {
	other, err := s.getUserByName(ctx, username)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM friendships
		 WHERE (requester_id = $1 AND addressee_id = $2)
		    OR (requester_id = $2 AND addressee_id = $1)`,
		userID, other.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
