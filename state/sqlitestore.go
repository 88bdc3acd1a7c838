package state

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// currentSchemaVersion is stored in PRAGMA user_version.
const currentSchemaVersion = 1

// SQLiteStore keeps slots in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore creates or opens the database at path.
//
// The database is configured with:
//   - WAL mode so listing does not block on a save in progress
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set user_version: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Put inserts or replaces a slot.
func (s *SQLiteStore) Put(gameID, name string, data []byte) error {
	if err := checkKey(gameID, name); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.Exec(`
		INSERT INTO slots (game_id, name, data, size, modified)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(game_id, name) DO UPDATE SET
			data = excluded.data,
			size = excluded.size,
			modified = excluded.modified
	`, gameID, name, data, len(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", name, err)
	}
	return nil
}

// Get reads a slot.
func (s *SQLiteStore) Get(gameID, name string) ([]byte, error) {
	if err := checkKey(gameID, name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM slots WHERE game_id = ? AND name = ?`, gameID, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", name, err)
	}
	return data, nil
}

// List returns the slots of a game sorted by name.
func (s *SQLiteStore) List(gameID string) ([]SlotInfo, error) {
	if err := ValidateName(gameID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT name, size, modified FROM slots WHERE game_id = ? ORDER BY name`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []SlotInfo
	for rows.Next() {
		var info SlotInfo
		var modified int64
		if err := rows.Scan(&info.Name, &info.Size, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		info.Modified = time.Unix(0, modified)
		slots = append(slots, info)
	}
	return slots, rows.Err()
}

// Delete removes a slot.
func (s *SQLiteStore) Delete(gameID, name string) error {
	if err := checkKey(gameID, name); err != nil {
		return err
	}
	res, err := s.db.Exec(`DELETE FROM slots WHERE game_id = ? AND name = ?`, gameID, name)
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLiteStore) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
