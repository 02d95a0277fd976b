package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Merge copies a batch of rows into Table, inserting new keys and updating
// existing ones. Rows are staged with COPY in a temp table that is dropped
// at commit.
type Merge struct {
	// Table may be schema-qualified, e.g. "public.reviews".
	Table   string
	Columns []string
	// Keys name the unique constraint rows are matched on.
	Keys []string
	// Update lists the columns overwritten on a key match. Nil means every
	// non-key column; an empty slice keeps existing rows untouched.
	Update []string
}

// StagingTable is the temp table Run copies into.
func (m Merge) StagingTable() string {
	return "_stage_" + strings.ReplaceAll(m.Table, ".", "_")
}

// Run merges rows and returns how many were inserted or updated.
func (m Merge) Run(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := m.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: begin", m.Table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, m.stageSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: create staging table", m.Table)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{m.StagingTable()}, m.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: copy", m.Table)
	}
	tag, err := tx.Exec(ctx, m.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: insert", m.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: commit", m.Table)
	}
	return tag.RowsAffected(), nil
}

func (m Merge) validate() error {
	if len(m.Columns) == 0 {
		return eris.Errorf("db: merge %s: no columns", m.Table)
	}
	if len(m.Keys) == 0 {
		return eris.Errorf("db: merge %s: no keys", m.Table)
	}
	for _, k := range m.Keys {
		if !slices.Contains(m.Columns, k) {
			return eris.Errorf("db: merge %s: key %q is not a column", m.Table, k)
		}
	}
	return nil
}

// updateColumns resolves the nil default of Update.
func (m Merge) updateColumns() []string {
	if m.Update != nil {
		return m.Update
	}
	var cols []string
	for _, c := range m.Columns {
		if !slices.Contains(m.Keys, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

func (m Merge) stageSQL() string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{m.StagingTable()}.Sanitize(), tableIdent(m.Table).Sanitize())
}

// mergeSQL keeps one staged row per key so a batch with repeated keys does
// not hit the same target row twice.
func (m Merge) mergeSQL() string {
	cols := identList(m.Columns)
	keys := identList(m.Keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) SELECT DISTINCT ON (%s) %s FROM %s ON CONFLICT (%s) ",
		tableIdent(m.Table).Sanitize(), cols, keys, cols, pgx.Identifier{m.StagingTable()}.Sanitize(), keys)

	update := m.updateColumns()
	if len(update) == 0 {
		sb.WriteString("DO NOTHING")
		return sb.String()
	}
	sb.WriteString("DO UPDATE SET ")
	for i, c := range update {
		if i > 0 {
			sb.WriteString(", ")
		}
		id := pgx.Identifier{c}.Sanitize()
		fmt.Fprintf(&sb, "%s = EXCLUDED.%s", id, id)
	}
	return sb.String()
}

func tableIdent(table string) pgx.Identifier {
	return pgx.Identifier(strings.SplitN(table, ".", 2))
}

func identList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
