// Package store persists searches, listings, fetch attempts, and user
// preferences in a local sqlite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/guarzo/ebaytracker/internal/model"
)

const dateLayout = "2006-01-02"

type Store struct {
	conn *sql.DB
}

func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.setup(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting up database: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) setup() error {
	if err := s.conn.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	if _, err := s.conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}

	return s.migrate()
}

func (s *Store) migrate() error {
	if _, err := s.conn.Exec(schemaMigrationsTable); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied int
		err := s.conn.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("checking migration %d: %w", m.version, err)
		}
		if applied > 0 {
			continue
		}

		if _, err := s.conn.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := s.conn.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
	}

	return nil
}

// AddSearch inserts a new search and returns its id.
func (s *Store) AddSearch(search model.Search) (int64, error) {
	var filters interface{}
	if len(search.Filters) > 0 {
		data, err := json.Marshal(search.Filters)
		if err != nil {
			return 0, fmt.Errorf("marshal filters: %w", err)
		}
		filters = string(data)
	}

	res, err := s.conn.Exec(
		"INSERT INTO searches (name, query, filters) VALUES (?, ?, ?)",
		search.Name, search.Query, filters,
	)
	if err != nil {
		return 0, fmt.Errorf("insert search: %w", err)
	}
	return res.LastInsertId()
}

// GetSearchByName returns nil when no search has that name.
func (s *Store) GetSearchByName(name string) (*model.Search, error) {
	return s.getSearch("SELECT id, name, query, filters, created_at, last_fetched_at FROM searches WHERE name = ?", name)
}

// GetSearchByID returns nil when no search has that id.
func (s *Store) GetSearchByID(id int64) (*model.Search, error) {
	return s.getSearch("SELECT id, name, query, filters, created_at, last_fetched_at FROM searches WHERE id = ?", id)
}

func (s *Store) getSearch(query string, arg interface{}) (*model.Search, error) {
	row := s.conn.QueryRow(query, arg)
	search, err := scanSearch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query search: %w", err)
	}
	return search, nil
}

// AllSearches returns every tracked search in creation order.
func (s *Store) AllSearches() ([]model.Search, error) {
	rows, err := s.conn.Query("SELECT id, name, query, filters, created_at, last_fetched_at FROM searches ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer rows.Close()

	var searches []model.Search
	for rows.Next() {
		search, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		searches = append(searches, *search)
	}
	return searches, rows.Err()
}

// DeleteSearch removes a search; its listings and fetch log entries go
// with it via cascade.
func (s *Store) DeleteSearch(id int64) error {
	if _, err := s.conn.Exec("DELETE FROM searches WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete search: %w", err)
	}
	return nil
}

// TouchLastFetched stamps last_fetched_at with the current time.
func (s *Store) TouchLastFetched(id int64) error {
	if _, err := s.conn.Exec("UPDATE searches SET last_fetched_at = CURRENT_TIMESTAMP WHERE id = ?", id); err != nil {
		return fmt.Errorf("update last_fetched_at: %w", err)
	}
	return nil
}

// AddListing inserts a listing, reporting whether it was new. Re-observing
// the same item for the same search is a defined no-op, not an error.
func (s *Store) AddListing(l model.Listing) (bool, error) {
	var soldDate interface{}
	if l.SoldDate != nil {
		soldDate = l.SoldDate.Format(dateLayout)
	}

	res, err := s.conn.Exec(
		`INSERT OR IGNORE INTO listings (search_id, ebay_item_id, title, price, shipping, condition, sold_date, url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.SearchID, l.EbayItemID, l.Title, l.Price, ptrValue(l.Shipping), ptrValue(l.Condition), soldDate, ptrValue(l.URL),
	)
	if err != nil {
		return false, fmt.Errorf("insert listing: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListingsForSearch returns listings newest sale first.
func (s *Store) ListingsForSearch(searchID int64) ([]model.Listing, error) {
	rows, err := s.conn.Query(
		`SELECT id, search_id, ebay_item_id, title, price, shipping, condition, sold_date, url, created_at
		 FROM listings WHERE search_id = ? ORDER BY sold_date DESC`,
		searchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		var shipping sql.NullFloat64
		var condition, soldDate, itemURL sql.NullString
		var createdAt string
		if err := rows.Scan(&l.ID, &l.SearchID, &l.EbayItemID, &l.Title, &l.Price, &shipping, &condition, &soldDate, &itemURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		if shipping.Valid {
			l.Shipping = &shipping.Float64
		}
		if condition.Valid {
			l.Condition = &condition.String
		}
		if soldDate.Valid {
			if parsed, err := time.Parse(dateLayout, soldDate.String); err == nil {
				l.SoldDate = &parsed
			}
		}
		if itemURL.Valid {
			l.URL = &itemURL.String
		}
		l.CreatedAt = parseTimestamp(createdAt)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// ListingCount returns the number of stored listings for a search.
func (s *Store) ListingCount(searchID int64) (int, error) {
	var count int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM listings WHERE search_id = ?", searchID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return count, nil
}

// AddFetchLog appends a fetch attempt record.
func (s *Store) AddFetchLog(entry model.FetchLog) error {
	_, err := s.conn.Exec(
		"INSERT INTO fetch_log (search_id, listings_found, status) VALUES (?, ?, ?)",
		entry.SearchID, entry.ListingsFound, entry.Status,
	)
	if err != nil {
		return fmt.Errorf("insert fetch log: %w", err)
	}
	return nil
}

// FetchLogForSearch returns fetch attempts newest first.
func (s *Store) FetchLogForSearch(searchID int64, limit int) ([]model.FetchLog, error) {
	rows, err := s.conn.Query(
		"SELECT id, search_id, fetched_at, listings_found, status FROM fetch_log WHERE search_id = ? ORDER BY fetched_at DESC LIMIT ?",
		searchID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query fetch log: %w", err)
	}
	defer rows.Close()

	var entries []model.FetchLog
	for rows.Next() {
		var e model.FetchLog
		var fetchedAt string
		var found sql.NullInt64
		if err := rows.Scan(&e.ID, &e.SearchID, &fetchedAt, &found, &e.Status); err != nil {
			return nil, fmt.Errorf("scan fetch log: %w", err)
		}
		e.ListingsFound = int(found.Int64)
		e.FetchedAt = parseTimestamp(fetchedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetPreference returns "" when the key is unset.
func (s *Store) GetPreference(key string) (string, error) {
	var value string
	err := s.conn.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query preference: %w", err)
	}
	return value, nil
}

// SetPreference upserts a preference value.
func (s *Store) SetPreference(key, value string) error {
	_, err := s.conn.Exec(
		"INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSearch(row scanner) (*model.Search, error) {
	var search model.Search
	var filters sql.NullString
	var createdAt string
	var lastFetched sql.NullString

	if err := row.Scan(&search.ID, &search.Name, &search.Query, &filters, &createdAt, &lastFetched); err != nil {
		return nil, err
	}

	if filters.Valid && filters.String != "" {
		if err := json.Unmarshal([]byte(filters.String), &search.Filters); err != nil {
			return nil, fmt.Errorf("unmarshal filters: %w", err)
		}
	}
	search.CreatedAt = parseTimestamp(createdAt)
	if lastFetched.Valid {
		t := parseTimestamp(lastFetched.String)
		search.LastFetchedAt = &t
	}

	return &search, nil
}

// parseTimestamp handles the formats sqlite emits for CURRENT_TIMESTAMP
// columns. Unparsable input yields the zero time.
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func ptrValue[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
