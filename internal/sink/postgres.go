package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nucleus/dp-connector/pkg/donorperfect"
)

// datasetTables maps export datasets onto the DonorPerfect table whose
// column definitions type them.
var datasetTables = map[string]string{
	"donors": "DP",
}

// Postgres replaces the contents of a dp_<dataset> table on every write.
type Postgres struct {
	pool   *pgxpool.Pool
	schema *donorperfect.Schema
	logger *slog.Logger
}

// NewPostgres connects to the database named by dsn.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	schema, err := donorperfect.DefaultSchema()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool, schema: schema, logger: logger}, nil
}

// pgColumn is one target column and its SQL type.
type pgColumn struct {
	name    string
	sqlType string
}

// Write creates or widens the table, then swaps its rows for records in one
// transaction.
func (p *Postgres) Write(ctx context.Context, dataset string, records []donorperfect.Record) error {
	if err := ValidateDataset(dataset); err != nil {
		return err
	}
	table := "dp_" + dataset
	cols := p.plan(dataset, columnsOf(records))

	rows, err := buildRows(cols, records)
	if err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements(table, cols) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("prepare %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	var copied int64
	if len(rows) > 0 {
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.name
		}
		copied, err = tx.CopyFrom(ctx, pgx.Identifier{table}, names, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", table, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}

	p.logger.Info("exported dataset", "sink", "postgres", "table", table, "rows", copied)
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// plan types each column from the bundled schema; unknown columns are TEXT.
func (p *Postgres) plan(dataset string, names []string) []pgColumn {
	var table *donorperfect.Table
	if name, ok := datasetTables[dataset]; ok && p.schema != nil {
		table, _ = p.schema.Table(name)
	}
	cols := make([]pgColumn, len(names))
	for i, name := range names {
		cols[i] = pgColumn{name: name, sqlType: "TEXT"}
		if table == nil {
			continue
		}
		if def, ok := table.Column(name); ok {
			cols[i].sqlType = sqlType(def)
		}
	}
	return cols
}

func sqlType(c donorperfect.Column) string {
	switch c.Type {
	case "numeric", "money", "decimal":
		return "NUMERIC"
	case "bigint", "int", "smallint":
		return "BIGINT"
	}
	return "TEXT"
}

func schemaStatements(table string, cols []pgColumn) []string {
	ident := pgx.Identifier{table}.Sanitize()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgx.Identifier{c.name}.Sanitize() + " " + c.sqlType
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident, strings.Join(defs, ", "))}
	for _, def := range defs {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s", ident, def))
	}
	return stmts
}

func buildRows(cols []pgColumn, records []donorperfect.Record) ([][]any, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(cols))
		for j, c := range cols {
			raw, ok := r.Get(c.name)
			if !ok {
				continue
			}
			v, err := convertValue(c.sqlType, raw)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, c.name, err)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return rows, nil
}

// convertValue turns response text into a value for a column of sqlType.
// Blank numbers are NULL.
func convertValue(sqlType, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	switch sqlType {
	case "NUMERIC":
		if s == "" {
			return nil, nil
		}
		var n pgtype.Numeric
		if err := n.Scan(s); err != nil {
			return nil, fmt.Errorf("%q is not numeric", raw)
		}
		return n, nil
	case "BIGINT":
		if s == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return i, nil
	}
	return raw, nil
}
