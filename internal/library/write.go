package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/querysql"
)

// Add inserts a new model and its flexible attributes and assigns its id.
func (l *Library) Add(ctx context.Context, m *Model) error {
	if m.id != 0 {
		return fmt.Errorf("add %s: already stored", m)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add %s: begin tx: %w", m.entity, err)
	}
	defer tx.Rollback() // No-op if committed

	var cols []string
	var params []any
	for _, f := range ir.Fields(m.entity) {
		if f.Name == "id" {
			continue
		}
		cols = append(cols, f.Name)
		params = append(params, columnValue(m.values[f.Name]))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		querysql.TableName(m.entity),
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	result, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("add %s: insert: %w", m.entity, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("add %s: last insert id: %w", m.entity, err)
	}

	for _, key := range m.values.SortedKeys() {
		if ir.IsFixed(m.entity, key) {
			continue
		}
		if err := upsertAttribute(ctx, tx, m.entity, id, key, m.values[key]); err != nil {
			return fmt.Errorf("add %s: %w", m.entity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add %s: commit: %w", m.entity, err)
	}

	m.setID(id)
	m.markStored()
	return nil
}

// Store persists the changes of every model in one transaction. Clean
// models are skipped. Either every model is written or none is.
func (l *Library) Store(ctx context.Context, models ...*Model) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var written []*Model
	for _, m := range models {
		if m.id == 0 {
			return fmt.Errorf("store %s: not added", m.entity)
		}
		changes := m.Changes()
		if len(changes) == 0 {
			continue
		}
		if err := storeChanges(ctx, tx, m, changes); err != nil {
			return fmt.Errorf("store %s: %w", m, err)
		}
		written = append(written, m)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}

	for _, m := range written {
		m.markStored()
	}
	return nil
}

func storeChanges(ctx context.Context, tx *sql.Tx, m *Model, changes []Change) error {
	var sets []string
	var params []any

	for _, c := range changes {
		if ir.IsFixed(m.entity, c.Field) {
			sets = append(sets, c.Field+" = ?")
			params = append(params, columnValue(c.New))
			continue
		}
		if c.New == nil {
			if err := deleteAttribute(ctx, tx, m.entity, m.id, c.Field); err != nil {
				return err
			}
			continue
		}
		if err := upsertAttribute(ctx, tx, m.entity, m.id, c.Field, c.New); err != nil {
			return err
		}
	}

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		querysql.TableName(m.entity), strings.Join(sets, ", "))
	params = append(params, m.id)

	result, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update: %w", ErrNotFound)
	}
	return nil
}

func upsertAttribute(ctx context.Context, tx *sql.Tx, entity ir.EntityType, id int64, key string, value ir.IRValue) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (entity_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_id, key) DO UPDATE SET value = excluded.value
	`, attributeTable(entity)), id, key, ir.Format(value))
	if err != nil {
		return fmt.Errorf("write attribute %s: %w", key, err)
	}
	return nil
}

func deleteAttribute(ctx context.Context, tx *sql.Tx, entity ir.EntityType, id int64, key string) error {
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE entity_id = ? AND key = ?", attributeTable(entity)),
		id, key)
	if err != nil {
		return fmt.Errorf("delete attribute %s: %w", key, err)
	}
	return nil
}

// columnValue converts a field value to a SQL parameter. Absent fields
// are NULL.
func columnValue(v ir.IRValue) any {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return nil
	case ir.IRInt:
		return int64(val)
	case ir.IRString:
		return string(val)
	case ir.IRBool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return ir.Format(v)
	}
}
