package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
)

// dialect captures the few places where SQLite and PostgreSQL differ.
type dialect struct {
	name string

	// placeholder returns the bind marker for the n-th (1-based) argument.
	placeholder func(n int) string

	// idType is the column type of CorrelationId.
	idType string

	// txOptions is passed to BeginTx; nil means driver default.
	txOptions *sql.TxOptions
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		placeholder: func(int) string { return "?" },
		idType:      "TEXT",
	}

	postgresDialect = dialect{
		name:        "postgres",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		idType:      "UUID",
		txOptions:   &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	}
)

type queries struct {
	schema string

	selectBlob    string
	updateBlob    string
	insertBlob    string
	deleteBlob    string
	selectHeaders string
	updateHeader  string
	insertHeader  string
	deleteHeaders string
}

// quote wraps an identifier in double quotes; both dialects keep the case
// of quoted names, so "CorrelationId" stays CorrelationId on Postgres too.
func quote(ident string) string {
	return `"` + ident + `"`
}

func buildQueries(d dialect, t Tables) queries {
	blob, header := quote(t.Blob), quote(t.Header)
	p := d.placeholder

	var schema strings.Builder
	fmt.Fprintf(&schema, `
CREATE TABLE IF NOT EXISTS %s (
    "CorrelationId" %s PRIMARY KEY,
    "BlobData"      TEXT
);
CREATE TABLE IF NOT EXISTS %s (
    "CorrelationId" %s NOT NULL,
    "Key"           TEXT NOT NULL,
    "Value"         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS %s ON %s ("CorrelationId");
`, blob, d.idType, header, d.idType, quote("idx_"+t.Header+"_CorrelationId"), header)

	return queries{
		schema: schema.String(),

		selectBlob: fmt.Sprintf(`SELECT "BlobData" FROM %s WHERE "CorrelationId" = %s`, blob, p(1)),
		updateBlob: fmt.Sprintf(`UPDATE %s SET "BlobData" = %s WHERE "CorrelationId" = %s`, blob, p(1), p(2)),
		insertBlob: fmt.Sprintf(`INSERT INTO %s ("CorrelationId", "BlobData") VALUES (%s, %s)`, blob, p(1), p(2)),
		deleteBlob: fmt.Sprintf(`DELETE FROM %s WHERE "CorrelationId" = %s`, blob, p(1)),

		selectHeaders: fmt.Sprintf(`SELECT "Key", "Value" FROM %s WHERE "CorrelationId" = %s`, header, p(1)),
		updateHeader:  fmt.Sprintf(`UPDATE %s SET "Value" = %s WHERE "CorrelationId" = %s AND "Key" = %s`, header, p(1), p(2), p(3)),
		insertHeader:  fmt.Sprintf(`INSERT INTO %s ("CorrelationId", "Key", "Value") VALUES (%s, %s, %s)`, header, p(1), p(2), p(3)),
		deleteHeaders: fmt.Sprintf(`DELETE FROM %s WHERE "CorrelationId" = %s`, header, p(1)),
	}
}
