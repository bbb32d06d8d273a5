package postgres

import (
	"context"
	"errors"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/skybi/assetdesk/internal/issue"
	"time"
)

const issueColumns = "issue_id, asset_uid, asset_name, asset_location, description, reporter, status, created_at, resolved_at"

// IssueRepository implements the issue.Repository interface using PostgreSQL
type IssueRepository struct {
	db *pgxpool.Pool
}

var _ issue.Repository = (*IssueRepository)(nil)

// Get retrieves multiple issues following a filter, ordered by their creation date (descending), together with the
// total amount of issues matching the filter.
// If limit <= 0, a default limit value of 10 is used.
func (repo *IssueRepository) Get(ctx context.Context, filter *issue.Filter, offset, limit uint64) ([]*issue.Issue, uint64, error) {
	// Construct the count and the limited query sharing the same filter
	countQuery := squirrel.Select("COUNT(*)").From("issues")
	query := squirrel.Select(issueColumns).From("issues").OrderBy("created_at DESC", "issue_id ASC")
	if filter != nil && filter.Status != nil {
		countQuery = countQuery.Where(squirrel.Eq{"status": string(*filter.Status)})
		query = query.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter != nil && filter.AssetUID != nil {
		countQuery = countQuery.Where(squirrel.Eq{"asset_uid": *filter.AssetUID})
		query = query.Where(squirrel.Eq{"asset_uid": *filter.AssetUID})
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	} else {
		query = query.Limit(10)
	}

	countSQL, countVals, err := countQuery.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, 0, err
	}
	sql, vals, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, 0, err
	}

	// Fetch the total amount of issues that matches the given filter
	var n uint64
	if err := repo.db.QueryRow(ctx, countSQL, countVals...).Scan(&n); err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return []*issue.Issue{}, 0, nil
	}

	// Fetch the issue objects themselves
	rows, err := repo.db.Query(ctx, sql, vals...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []*issue.Issue{}, n, nil
		}
		return nil, 0, err
	}
	defer rows.Close()

	issues := []*issue.Issue{}
	for rows.Next() {
		obj, err := repo.rowToIssue(rows)
		if err != nil {
			return nil, 0, err
		}
		issues = append(issues, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return issues, n, nil
}

// GetByID retrieves an issue by its ID
func (repo *IssueRepository) GetByID(ctx context.Context, id uuid.UUID) (*issue.Issue, error) {
	row := repo.db.QueryRow(ctx, "SELECT "+issueColumns+" FROM issues WHERE issue_id = $1", id)
	obj, err := repo.rowToIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

// Create creates a new open issue
func (repo *IssueRepository) Create(ctx context.Context, create *issue.Create) (*issue.Issue, error) {
	obj := &issue.Issue{
		ID:            uuid.New(),
		AssetUID:      create.AssetUID,
		AssetName:     create.AssetName,
		AssetLocation: create.AssetLocation,
		Description:   create.Description,
		Reporter:      create.Reporter,
		Status:        issue.StatusOpen,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}

	_, err := repo.db.Exec(
		ctx,
		"INSERT INTO issues ("+issueColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)",
		obj.ID,
		obj.AssetUID,
		obj.AssetName,
		obj.AssetLocation,
		obj.Description,
		obj.Reporter,
		string(obj.Status),
		obj.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// UpdateStatus changes the status of an existing issue
func (repo *IssueRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status issue.Status) (*issue.Issue, error) {
	query := squirrel.Update("issues").Where(squirrel.Eq{"issue_id": id}).Set("status", string(status))
	if status == issue.StatusResolved {
		query = query.Set("resolved_at", time.Now().UTC().Unix())
	} else {
		query = query.Set("resolved_at", nil)
	}

	sql, values, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := repo.db.Exec(ctx, sql, values...); err != nil {
		return nil, err
	}

	// Re-fetch the issue
	return repo.GetByID(ctx, id)
}

func (repo *IssueRepository) rowToIssue(row pgx.Row) (*issue.Issue, error) {
	obj := new(issue.Issue)
	var (
		status     string
		createdAt  int64
		resolvedAt *int64
	)
	err := row.Scan(
		&obj.ID,
		&obj.AssetUID,
		&obj.AssetName,
		&obj.AssetLocation,
		&obj.Description,
		&obj.Reporter,
		&status,
		&createdAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	obj.Status = issue.Status(status)
	obj.CreatedAt = time.Unix(createdAt, 0).UTC()
	if resolvedAt != nil {
		resolved := time.Unix(*resolvedAt, 0).UTC()
		obj.ResolvedAt = &resolved
	}
	return obj, nil
}
