package mongostore

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	_ "modernc.org/sqlite"
)

func openSourceDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFetchGameDetails(t *testing.T) {
	db := openSourceDB(t)
	stmts := []string{
		`CREATE TABLE games (TitleName TEXT, TitleID TEXT, PublisherName TEXT)`,
		`INSERT INTO games VALUES ('Half-Life', 'HL1', 'Valve')`,
		`INSERT INTO games VALUES ('Portal', 'P1', 'Valve')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	details, err := FetchGameDetails(context.Background(), db, `SELECT TitleName, TitleID, PublisherName FROM games ORDER BY TitleName`)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("rows = %d, want 2", len(details))
	}
	if got := details[0]["TitleName"]; got != "Half-Life" {
		t.Errorf("first TitleName = %v, want Half-Life", got)
	}
	if got := details[1]["TitleID"]; got != "P1" {
		t.Errorf("second TitleID = %v, want P1", got)
	}
}

func TestFetchGameDetailsRequiresTitleColumn(t *testing.T) {
	db := openSourceDB(t)
	if _, err := db.Exec(`CREATE TABLE games (ProductID TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	if _, err := FetchGameDetails(context.Background(), db, `SELECT ProductID FROM games`); err == nil {
		t.Fatal("expected an error for a query without TitleName")
	}
}

func TestBuildDocument(t *testing.T) {
	details := GameDetails{
		"TitleName":     "Half-Life",
		"TitleID":       "HL1",
		"PublisherName": "Valve",
		"IgnoredColumn": "dropped",
	}

	got := buildDocument(details, "Verified")
	want := bson.M{
		"TitleName":     "Half-Life",
		"TitleID":       "HL1",
		"PublisherName": "Valve",
		"ProductID":     nil,
		"PublisherType": nil,
		"SteamOSResult": "Verified",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("document = %v, want %v", got, want)
	}
}

func TestTitleOf(t *testing.T) {
	tests := []struct {
		name    string
		details GameDetails
		want    string
	}{
		{name: "exact column", details: GameDetails{"TitleName": "Half-Life"}, want: "Half-Life"},
		{name: "case insensitive column", details: GameDetails{"titlename": " Portal "}, want: "Portal"},
		{name: "non-string value", details: GameDetails{"TitleName": 42}, want: ""},
		{name: "missing column", details: GameDetails{"ProductID": "x"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titleOf(tt.details); got != tt.want {
				t.Errorf("titleOf(%v) = %q, want %q", tt.details, got, tt.want)
			}
		})
	}
}
