package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const auditPartitionPrefix = "login_audit_"

// PartitionName returns the monthly login_audit partition holding t.
func PartitionName(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%04d_%02d", auditPartitionPrefix, t.Year(), int(t.Month()))
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func parsePartitionMonth(name string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(name, auditPartitionPrefix)
	if !ok || len(rest) != 7 || rest[4] != '_' {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(rest[:4])
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(rest[5:])
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), true
}

// EnsureAuditPartition creates the monthly partition containing t if it does not exist.
// Rows already routed to the default partition for that month block creation; Postgres
// reports that as an error and the caller should retry after moving them.
func EnsureAuditPartition(ctx context.Context, q DBTX, t time.Time) error {
	from := monthStart(t)
	to := from.AddDate(0, 1, 0)
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s PARTITION OF login_audit FOR VALUES FROM ('%s') TO ('%s')`,
		PartitionName(from), from.Format(time.DateOnly), to.Format(time.DateOnly),
	)
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create partition %s: %w", PartitionName(from), err)
	}
	return nil
}

// DropAuditPartitionsBefore drops monthly partitions that end on or before cutoff's month.
// It returns the names of dropped partitions.
func DropAuditPartitionsBefore(ctx context.Context, q DBTX, cutoff time.Time) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.relname
		FROM pg_inherits i
		JOIN pg_class c ON c.oid = i.inhrelid
		JOIN pg_class p ON p.oid = i.inhparent
		WHERE p.relname = 'login_audit'`)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	var stale []string
	limit := monthStart(cutoff)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		if m, ok := parsePartitionMonth(name); ok && m.Before(limit) {
			stale = append(stale, name)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dropped := make([]string, 0, len(stale))
	for _, name := range stale {
		if _, err := q.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
			return dropped, fmt.Errorf("drop partition %s: %w", name, err)
		}
		dropped = append(dropped, name)
	}
	return dropped, nil
}
