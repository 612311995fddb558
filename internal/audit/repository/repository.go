package repository

import (
	"context"

	"auth-service/backend/internal/audit/domain"
)

// Repository is the append-only login audit trail. Events are never updated or deleted here;
// retention is handled by dropping whole time partitions.
type Repository interface {
	Append(ctx context.Context, e *domain.LoginEvent) error
	// ListForUser returns one page of the user's events, newest first, and the total count.
	ListForUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.LoginEvent, int64, error)
}

// pastEnd reports whether page starts beyond the last of total events. Callers skip the row
// query then, so offset is only computed for pages that overlap the data and cannot overflow.
func pastEnd(page, pageSize int, total int64) bool {
	if page < 1 || pageSize < 1 {
		return false
	}
	pages := (total + int64(pageSize) - 1) / int64(pageSize)
	return int64(page-1) >= pages
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
