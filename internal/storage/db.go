// Package storage owns the persistent relations and executes parameterized
// reads and writes against them. It carries no business logic.
package storage

import (
	"database/sql"
	"time"

	"expense-manager/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and applies pending migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// sqlite permits a single writer; one pooled connection also keeps
	// :memory: databases coherent across queries.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := RunMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateExpense inserts a new expense. A blank incurred date defaults to the
// server's current calendar date.
func (db *DB) CreateExpense(userID int64, category string, amount float64, note, spentOn string) error {
	if spentOn == "" {
		spentOn = time.Now().Format(models.DateLayout)
	}
	_, err := db.conn.Exec(
		"INSERT INTO expenses (user_id, category, amount, note, spent_on) VALUES (?, ?, ?, ?, ?)",
		userID, category, amount, note, spentOn,
	)
	return err
}

// GetExpense retrieves a single expense by ID, scoped to the owning user.
func (db *DB) GetExpense(id, userID int64) (*models.Expense, error) {
	row := db.conn.QueryRow(
		"SELECT id, user_id, category, amount, note, spent_on FROM expenses WHERE id = ? AND user_id = ?",
		id, userID,
	)
	return scanExpense(row)
}

// UpdateExpense replaces the four mutable fields of an expense. Updating an
// identifier that does not exist affects zero rows and is not an error.
func (db *DB) UpdateExpense(e *models.Expense) error {
	if e.SpentOn == "" {
		e.SpentOn = time.Now().Format(models.DateLayout)
	}
	_, err := db.conn.Exec(
		"UPDATE expenses SET category = ?, amount = ?, note = ?, spent_on = ? WHERE id = ? AND user_id = ?",
		e.Category, e.Amount, e.Note, e.SpentOn, e.ID, e.UserID,
	)
	return err
}

// DeleteExpense removes an expense by ID. Deleting an identifier that does
// not exist is a no-op.
func (db *DB) DeleteExpense(id, userID int64) error {
	_, err := db.conn.Exec("DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID)
	return err
}

// ListExpenses retrieves all of a user's expenses, most recent date first.
func (db *DB) ListExpenses(userID int64) ([]models.Expense, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_id, category, amount, note, spent_on FROM expenses WHERE user_id = ? ORDER BY spent_on DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

// SearchExpenses retrieves a user's expenses whose amount, category, note or
// date contains the query as a case-insensitive substring, in natural order.
func (db *DB) SearchExpenses(userID int64, query string) ([]models.Expense, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, user_id, category, amount, note, spent_on FROM expenses
		WHERE user_id = ?
		  AND (CAST(amount AS TEXT) LIKE ?
		    OR category LIKE ?
		    OR note LIKE ?
		    OR COALESCE(spent_on, '') LIKE ?)
	`, userID, pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

// ExpensesSince retrieves a user's expenses incurred on or after the given
// date, most recent first. Rows predating the date column are excluded.
func (db *DB) ExpensesSince(userID int64, since string) ([]models.Expense, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, category, amount, note, spent_on FROM expenses
		WHERE user_id = ? AND spent_on IS NOT NULL AND date(spent_on) >= date(?)
		ORDER BY spent_on DESC, id DESC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

// CategoryTotalsSince sums a user's expenses per category for dates on or
// after the boundary. Categories appear in order of first recording.
func (db *DB) CategoryTotalsSince(userID int64, since string) ([]models.CategoryTotal, error) {
	rows, err := db.conn.Query(`
		SELECT category, SUM(amount) FROM expenses
		WHERE user_id = ? AND spent_on IS NOT NULL AND date(spent_on) >= date(?)
		GROUP BY category ORDER BY MIN(id)
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.CategoryTotal
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, err
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func scanExpense(row *sql.Row) (*models.Expense, error) {
	var e models.Expense
	var userID sql.NullInt64
	var spentOn sql.NullString
	if err := row.Scan(&e.ID, &userID, &e.Category, &e.Amount, &e.Note, &spentOn); err != nil {
		return nil, err
	}
	e.UserID = userID.Int64
	e.SpentOn = spentOn.String
	return &e, nil
}

func collectExpenses(rows *sql.Rows) ([]models.Expense, error) {
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		var userID sql.NullInt64
		var spentOn sql.NullString
		if err := rows.Scan(&e.ID, &userID, &e.Category, &e.Amount, &e.Note, &spentOn); err != nil {
			return nil, err
		}
		e.UserID = userID.Int64
		e.SpentOn = spentOn.String
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// CreateUser creates a new user with the given username and password hash.
func (db *DB) CreateUser(username, passwordHash string) (*models.User, error) {
	result, err := db.conn.Exec(
		"INSERT INTO users (username, password_hash) VALUES (?, ?)",
		username, passwordHash,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?",
		id,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by username. The lookup is exact and
// case-sensitive.
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// UserCount returns the number of registered users.
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(token string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt, time.Now(),
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the
// associated user.
func (db *DB) ValidateSession(token string) (*models.User, error) {
	info, err := db.ValidateSessionWithInfo(token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns
// session details.
func (db *DB) ValidateSessionWithInfo(token string) (*SessionInfo, error) {
	row := db.conn.QueryRow(`
		SELECT u.id, u.username, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP
	`, token)

	var u models.User
	var lastActivity, expiresAt time.Time
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &lastActivity, &expiresAt); err != nil {
		return nil, err
	}
	return &SessionInfo{
		User:         &u,
		LastActivity: lastActivity,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(token string, newExpiresAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		time.Now(), newExpiresAt, token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions() error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP")
	return err
}
