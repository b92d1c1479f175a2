package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenDB opens a PostgreSQL connection pool for the directory database.
func OpenDB(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	// Conservative pool defaults; identity lookups are small point reads.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Validate connectivity immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// PostgresStore serves account and group lookups from a directory
// database instead of the host's passwd/group files. Intended for fleets
// where employee accounts are provisioned centrally; the schema is managed
// by RunMigrations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open directory database connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// LookupUser returns the account row for username.
func (s *PostgresStore) LookupUser(username string) (User, error) {
	var u User
	err := s.db.QueryRow(
		`SELECT username, uid, gid FROM accounts WHERE username = $1`,
		username,
	).Scan(&u.Name, &u.UID, &u.GID)
	if err != nil {
		if err == sql.ErrNoRows {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

// IsMember applies the same two tests as the files store: an explicit row
// in group_members, or the group's gid matching the account's primary gid.
func (s *PostgresStore) IsMember(username, group string) (bool, error) {
	var member bool
	err := s.db.QueryRow(
		`SELECT EXISTS (
		     SELECT 1 FROM group_members
		      WHERE group_name = $2 AND username = $1
		 ) OR EXISTS (
		     SELECT 1 FROM accounts a
		       JOIN groups g ON g.gid = a.gid
		      WHERE a.username = $1 AND g.name = $2
		 )`,
		username, group,
	).Scan(&member)
	if err != nil {
		return false, err
	}
	return member, nil
}

// Ping reports whether the directory database is reachable. Used by the
// admin health endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
