package repositories

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/usage"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/db"
)

const callColumns = `id, operation, cache_key, method, path, success, error_code, duration_ms, requested_at`

type usageRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewUsageRepository creates the Postgres-backed upstream call ledger.
func NewUsageRepository(database *db.Database, logger *logrus.Logger) ports.UsageRepository {
	return &usageRepository{
		db:     database,
		logger: logger,
	}
}

// Create inserts one upstream call.
func (r *usageRepository) Create(ctx context.Context, call *usage.Call) error {
	if call.ID == uuid.Nil {
		call.ID = uuid.New()
	}
	if call.RequestedAt.IsZero() {
		call.RequestedAt = time.Now()
	}

	query := `INSERT INTO upstream_calls (` + callColumns + `)
		VALUES (:id, :operation, :cache_key, :method, :path, :success, :error_code, :duration_ms, :requested_at)`

	if _, err := r.db.DB.NamedExecContext(ctx, query, call); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"operation": call.Operation, "path": call.Path}).WithError(err).Error("db: failed to insert upstream call")
		}
		return err
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"operation": call.Operation, "success": call.Success}).Debug("db: upstream call inserted")
	}
	return nil
}

// List retrieves upstream calls, newest first.
func (r *usageRepository) List(ctx context.Context, filter *usage.CallFilter) ([]*usage.Call, error) {
	query, args := buildUsageQuery(filter, "SELECT "+callColumns, true)
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"query": query, "args": args}).Debug("db: executing usage list query")
	}
	calls := []*usage.Call{}
	if err := r.db.DB.SelectContext(ctx, &calls, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"query": query}).WithError(err).Error("db: failed to execute usage list query")
		}
		return nil, err
	}
	return calls, nil
}

// Count returns the number of calls matching the filter.
func (r *usageRepository) Count(ctx context.Context, filter *usage.CallFilter) (int, error) {
	query, args := buildUsageQuery(filter, "SELECT COUNT(*)", false)
	var count int
	if err := r.db.DB.GetContext(ctx, &count, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"query": query}).WithError(err).Error("db: failed to execute usage count query")
		}
		return 0, err
	}
	return count, nil
}

// CountByOperation groups matching calls by operation.
func (r *usageRepository) CountByOperation(ctx context.Context, filter *usage.CallFilter) ([]usage.OperationCount, error) {
	query, args := buildUsageQuery(filter,
		"SELECT operation, COUNT(*) AS calls, COUNT(*) FILTER (WHERE NOT success) AS failures", false)
	query += " GROUP BY operation ORDER BY operation"

	counts := []usage.OperationCount{}
	if err := r.db.DB.SelectContext(ctx, &counts, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"query": query}).WithError(err).Error("db: failed to execute usage summary query")
		}
		return nil, err
	}
	return counts, nil
}

// buildUsageQuery appends the filter's WHERE clause to selectClause, plus
// ordering and paging when paged is set.
func buildUsageQuery(filter *usage.CallFilter, selectClause string, paged bool) (string, []interface{}) {
	query := selectClause + " FROM upstream_calls"
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter != nil {
		if filter.Operation != nil {
			conditions = append(conditions, "operation = $"+strconv.Itoa(argIndex))
			args = append(args, *filter.Operation)
			argIndex++
		}
		if filter.Success != nil {
			conditions = append(conditions, "success = $"+strconv.Itoa(argIndex))
			args = append(args, *filter.Success)
			argIndex++
		}
		if filter.StartTime != nil {
			conditions = append(conditions, "requested_at >= $"+strconv.Itoa(argIndex))
			args = append(args, *filter.StartTime)
			argIndex++
		}
		if filter.EndTime != nil {
			conditions = append(conditions, "requested_at <= $"+strconv.Itoa(argIndex))
			args = append(args, *filter.EndTime)
			argIndex++
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if paged {
		query += " ORDER BY requested_at DESC"
		if filter != nil {
			if filter.Limit > 0 {
				query += " LIMIT $" + strconv.Itoa(argIndex)
				args = append(args, filter.Limit)
				argIndex++
			}
			if filter.Offset > 0 {
				query += " OFFSET $" + strconv.Itoa(argIndex)
				args = append(args, filter.Offset)
			}
		}
	}

	return query, args
}
