package storage

import (
	"time"
)

// AppendSyncLog writes one ledger row; rows are never mutated
func (s *Storage) AppendSyncLog(entry *SyncLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`
	INSERT INTO sync_logs (direction, entity_type, entity_id, action, outcome,
		request_json, response_json, error, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Direction, entry.EntityType, entry.EntityID, entry.Action, entry.Outcome,
		entry.RequestJSON, entry.ResponseJSON, entry.Error, entry.DurationMs, entry.CreatedAt,
	)
	if err != nil {
		return err
	}
	entry.ID, err = res.LastInsertId()
	return err
}

// ListSyncLogs returns ledger rows matching the filters, newest first
func (s *Storage) ListSyncLogs(filters SyncLogFilters) ([]SyncLogEntry, error) {
	query := `
	SELECT id, direction, entity_type, entity_id, action, outcome,
		request_json, response_json, error, duration_ms, created_at
	FROM sync_logs WHERE 1=1`
	args := []interface{}{}

	if filters.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, filters.EntityType)
	}
	if filters.EntityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, filters.EntityID)
	}
	if filters.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, filters.Outcome)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []SyncLogEntry
	for rows.Next() {
		var e SyncLogEntry
		if err := rows.Scan(&e.ID, &e.Direction, &e.EntityType, &e.EntityID, &e.Action,
			&e.Outcome, &e.RequestJSON, &e.ResponseJSON, &e.Error, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetStats returns aggregate entity/ledger/job statistics
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{
		LogOutcomes: make(map[string]int),
		JobStatuses: make(map[string]int),
	}

	counts := []struct {
		table string
		dest  *int
	}{
		{"categories", &stats.Categories},
		{"shipping_classes", &stats.ShippingClasses},
		{"customers", &stats.Customers},
		{"products", &stats.Products},
		{"orders", &stats.Orders},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + c.table).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	pendingQuery := `
	SELECT
		(SELECT COUNT(*) FROM categories WHERE sync_status = 'pending') +
		(SELECT COUNT(*) FROM shipping_classes WHERE sync_status = 'pending') +
		(SELECT COUNT(*) FROM customers WHERE sync_status = 'pending') +
		(SELECT COUNT(*) FROM products WHERE sync_status = 'pending')`
	if err := s.db.QueryRow(pendingQuery).Scan(&stats.PendingEntities); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT outcome, COUNT(*) FROM sync_logs GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		stats.LogOutcomes[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	jobRows, err := s.db.Query(`SELECT status, COUNT(*) FROM sync_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer jobRows.Close()
	for jobRows.Next() {
		var status string
		var count int
		if err := jobRows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.JobStatuses[status] = count
	}
	return stats, jobRows.Err()
}
