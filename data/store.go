// Package data provides local persistence: the sqlite store backing the
// cartography prefetch cache and the device identity file.
package data

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Record kinds stored in the cartography table.
const (
	KindBuilding     = "building"
	KindBuildingInfo = "building_info"
	KindPoi          = "poi"
	KindCategory     = "category"
)

const schema = `
CREATE TABLE IF NOT EXISTS cartography (
	kind TEXT NOT NULL,
	identifier TEXT NOT NULL,
	building TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	updated INTEGER NOT NULL,
	PRIMARY KEY (kind, identifier)
);
CREATE INDEX IF NOT EXISTS idx_cartography_building ON cartography (kind, building);
`

// Store is the sqlite-backed cache.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Put upserts a record. The payload is stored as JSON.
func (s *Store) Put(kind, identifier, buildingID string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO cartography (kind, identifier, building, payload, updated)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (kind, identifier) DO UPDATE
		 SET building = excluded.building, payload = excluded.payload, updated = excluded.updated`,
		kind, identifier, buildingID, string(payload), time.Now().Unix(),
	)
	return err
}

// Get loads a single record into dst. Returns false when absent.
func (s *Store) Get(kind, identifier string, dst any) (bool, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM cartography WHERE kind = ? AND identifier = ?`,
		kind, identifier,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(payload), dst)
}

// List returns the raw payloads of a kind, optionally filtered by building.
func (s *Store) List(kind, buildingID string) ([][]byte, error) {
	query := `SELECT payload FROM cartography WHERE kind = ? ORDER BY identifier`
	args := []any{kind}
	if buildingID != "" {
		query = `SELECT payload FROM cartography WHERE kind = ? AND building = ? ORDER BY identifier`
		args = append(args, buildingID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		payloads = append(payloads, []byte(payload))
	}
	return payloads, rows.Err()
}

// Clear drops every cached record.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM cartography`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

//
// JSON file helpers
//

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("[data] mkdir %s: %v", filepath.Dir(path), err)
	}
	return os.WriteFile(path, data, 0644)
}
