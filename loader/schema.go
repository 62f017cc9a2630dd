package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// FetchTableSchema returns the destination table's column names in ordinal
// position order. The result is the read-only reference the validator
// compares dataset headers against.
func FetchTableSchema(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	schemaName, tableName := splitTable(table)

	const query = `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
		ORDER BY ORDINAL_POSITION`

	rows, err := db.QueryContext(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("fetch schema for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read schema rows: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no schema found for table %s", table)
	}
	return columns, nil
}

// splitTable parses "dbo.Table" or "[dbo].[Table]" into schema and table
// parts. A bare name defaults to the dbo schema.
func splitTable(table string) (string, string) {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 1 {
		return "dbo", trimBrackets(parts[0])
	}
	return trimBrackets(parts[0]), trimBrackets(parts[1])
}

func trimBrackets(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "["), "]")
}

// quoteTable renders the table reference with bracket quoting. A schema
// part is kept only when the input carries one, so unqualified names work
// against stores without schemas.
func quoteTable(table string) string {
	if !strings.Contains(table, ".") {
		return "[" + trimBrackets(table) + "]"
	}
	schemaName, tableName := splitTable(table)
	return "[" + schemaName + "].[" + tableName + "]"
}
