package services

import (
	"testing"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var testNow = time.Date(2026, 6, 20, 9, 30, 0, 0, time.UTC)

var testSchema = []string{`CREATE TABLE venues (
	id TEXT PRIMARY KEY NOT NULL,
	name TEXT DEFAULT '' NOT NULL,
	review_url TEXT DEFAULT '' NOT NULL,
	rating_threshold NUMERIC DEFAULT 0 NOT NULL
)`,
	`CREATE TABLE weddings (
	id TEXT PRIMARY KEY NOT NULL,
	venue TEXT DEFAULT '' NOT NULL,
	groom_name TEXT DEFAULT '' NOT NULL,
	bride_name TEXT DEFAULT '' NOT NULL,
	time TEXT DEFAULT '' NOT NULL,
	passcode TEXT DEFAULT '' NOT NULL
)`,
	`CREATE TABLE reviews (
	id TEXT PRIMARY KEY NOT NULL,
	wedding TEXT DEFAULT '' NOT NULL,
	author_role TEXT DEFAULT '' NOT NULL,
	rating NUMERIC DEFAULT 0 NOT NULL,
	content TEXT DEFAULT '' NOT NULL,
	created TEXT DEFAULT '' NOT NULL,
	updated TEXT DEFAULT '' NOT NULL
)`,
}

func setupTestDB(t *testing.T) *dbx.DB {
	t.Helper()

	db, err := dbx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range testSchema {
		_, err = db.NewQuery(stmt).Execute()
		require.NoError(t, err)
	}
	return db
}

func insertVenue(t *testing.T, db *dbx.DB, id, reviewURL string, threshold int) {
	t.Helper()
	_, err := db.Insert("venues", dbx.Params{
		"id":               id,
		"name":             "Venue " + id,
		"review_url":       reviewURL,
		"rating_threshold": threshold,
	}).Execute()
	require.NoError(t, err)
}

func insertWedding(t *testing.T, db *dbx.DB, id, venue string, at time.Time, passcode string) {
	t.Helper()
	_, err := db.Insert("weddings", dbx.Params{
		"id":         id,
		"venue":      venue,
		"groom_name": "Groom " + id,
		"bride_name": "Bride " + id,
		"time":       at.UTC().Format(types.DefaultDateLayout),
		"passcode":   passcode,
	}).Execute()
	require.NoError(t, err)
}
