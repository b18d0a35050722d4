package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// withTx runs fn inside a transaction, rolling back unless fn and the commit succeed.
func withTx(ctx context.Context, db *sqlx.DB, label string, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", label, err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", label, err)
	}
	commit = true
	return nil
}

// junction describes a two-column association table keyed by (owner, member).
type junction struct {
	table     string
	ownerCol  string
	memberCol string
}

var (
	studentSubjects = junction{table: "student_subjects", ownerCol: "student_id", memberCol: "subject_id"}
	courseSubjects  = junction{table: "course_subjects", ownerCol: "course_id", memberCol: "subject_id"}
)

// replace rewrites the member set of owner to exactly desired. The current rows are
// locked first so concurrent replaces for the same owner serialise.
func (j junction) replace(ctx context.Context, tx *sqlx.Tx, ownerID string, desired []string) (added, removed []string, err error) {
	var current []string
	lock := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 FOR UPDATE", j.memberCol, j.table, j.ownerCol)
	if err := tx.SelectContext(ctx, &current, lock, ownerID); err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", j.table, err)
	}
	added, removed = diffSets(current, desired)

	del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2", j.table, j.ownerCol, j.memberCol)
	for _, id := range removed {
		if _, err := tx.ExecContext(ctx, del, ownerID, id); err != nil {
			return nil, nil, fmt.Errorf("delete from %s: %w", j.table, err)
		}
	}
	ins := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING", j.table, j.ownerCol, j.memberCol)
	for _, id := range added {
		if _, err := tx.ExecContext(ctx, ins, ownerID, id); err != nil {
			return nil, nil, fmt.Errorf("insert into %s: %w", j.table, err)
		}
	}
	return added, removed, nil
}

// diffSets returns the sorted members to add and to remove to turn current into desired.
func diffSets(current, desired []string) (added, removed []string) {
	have := make(map[string]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	want := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		if id == "" {
			continue
		}
		want[id] = struct{}{}
	}
	added = []string{}
	removed = []string{}
	for id := range want {
		if _, ok := have[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range have {
		if _, ok := want[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func pageBounds(page, size, maxSize, defaultSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxSize {
		size = defaultSize
	}
	return page, size, (page - 1) * size
}

// requireRows maps a zero row-count write to sql.ErrNoRows.
func requireRows(res sql.Result, label string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", label, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
