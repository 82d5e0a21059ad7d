package store

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{version: 1, name: "searches", sql: searchesTable},
	{version: 2, name: "listings", sql: listingsTable},
	{version: 3, name: "fetch_log", sql: fetchLogTable},
	{version: 4, name: "preferences", sql: preferencesTable},
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const searchesTable = `
CREATE TABLE IF NOT EXISTS searches (
	id              INTEGER PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	query           TEXT NOT NULL,
	filters         TEXT,
	created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_fetched_at TIMESTAMP
);
`

const listingsTable = `
CREATE TABLE IF NOT EXISTS listings (
	id           INTEGER PRIMARY KEY,
	search_id    INTEGER NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
	ebay_item_id TEXT NOT NULL,
	title        TEXT NOT NULL,
	price        REAL NOT NULL,
	shipping     REAL,
	condition    TEXT,
	sold_date    DATE,
	url          TEXT,
	created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(search_id, ebay_item_id)
);
CREATE INDEX IF NOT EXISTS idx_listings_search_id ON listings(search_id);
`

const fetchLogTable = `
CREATE TABLE IF NOT EXISTS fetch_log (
	id             INTEGER PRIMARY KEY,
	search_id      INTEGER NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
	fetched_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	listings_found INTEGER,
	status         TEXT
);
`

const preferencesTable = `
CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
