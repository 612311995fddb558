package store

import (
	"context"
	"fmt"
	"time"

	auditrepo "auth-service/backend/internal/audit/repository"
	"auth-service/backend/internal/db"
	sessionrepo "auth-service/backend/internal/session/repository"
)

// SweepResult counts what one Sweep removed.
type SweepResult struct {
	ExpiredSessions int64
	// AuditRows is set on SQLite; Postgres drops whole partitions instead.
	AuditRows         int64
	DroppedPartitions []string
}

// Sweep deletes sessions that expired before now and login events older than retentionMonths.
// On Postgres it also makes sure this and next month's login_audit partitions exist, so
// inserts never fall into the default partition.
func (b *Backend) Sweep(ctx context.Context, now time.Time, retentionMonths int) (SweepResult, error) {
	var res SweepResult
	cutoff := now.AddDate(0, -retentionMonths, 0)

	switch {
	case b.SQL != nil:
		for _, month := range []time.Time{now, now.AddDate(0, 1, 0)} {
			if err := db.EnsureAuditPartition(ctx, b.SQL, month); err != nil {
				return res, err
			}
		}
		dropped, err := db.DropAuditPartitionsBefore(ctx, b.SQL, cutoff)
		if err != nil {
			return res, err
		}
		res.DroppedPartitions = dropped
		n, err := sessionrepo.NewPostgresRepository(b.SQL, nil).DeleteExpired(ctx, now)
		if err != nil {
			return res, fmt.Errorf("delete expired sessions: %w", err)
		}
		res.ExpiredSessions = n
	case b.Gorm != nil:
		n, err := sessionrepo.NewGormRepository(b.Gorm, nil).DeleteExpired(ctx, now)
		if err != nil {
			return res, fmt.Errorf("delete expired sessions: %w", err)
		}
		res.ExpiredSessions = n
		n, err = auditrepo.NewGormRepository(b.Gorm).DeleteBefore(ctx, cutoff)
		if err != nil {
			return res, fmt.Errorf("delete old login events: %w", err)
		}
		res.AuditRows = n
	}
	return res, nil
}
