package memory

import (
	"context"
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/skybi/assetdesk/internal/issue"
	"sort"
	"time"
)

// issueRecord wraps an issue so it can be indexed by its string ID and status
type issueRecord struct {
	ID     string
	Status string
	Issue  issue.Issue
}

func newIssueRecord(obj *issue.Issue) *issueRecord {
	return &issueRecord{
		ID:     obj.ID.String(),
		Status: string(obj.Status),
		Issue:  *obj,
	}
}

// IssueRepository implements the issue.Repository interface using an in-memory database
type IssueRepository struct {
	db *memdb.MemDB
}

var _ issue.Repository = (*IssueRepository)(nil)

// Get retrieves multiple issues following a filter, ordered by their creation date (descending), together with the
// total amount of issues matching the filter.
// If limit <= 0, a default limit value of 10 is used.
func (repo *IssueRepository) Get(_ context.Context, filter *issue.Filter, offset, limit uint64) ([]*issue.Issue, uint64, error) {
	txn := repo.db.Txn(false)
	var (
		it  memdb.ResultIterator
		err error
	)
	if filter != nil && filter.Status != nil {
		it, err = txn.Get(tableIssues, "status", string(*filter.Status))
	} else {
		it, err = txn.Get(tableIssues, "id")
	}
	if err != nil {
		return nil, 0, err
	}

	all := []*issue.Issue{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		record := obj.(*issueRecord)
		if filter != nil && filter.AssetUID != nil && record.Issue.AssetUID != *filter.AssetUID {
			continue
		}
		cpy := record.Issue
		all = append(all, &cpy)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	return paginate(all, offset, limit), uint64(len(all)), nil
}

// GetByID retrieves an issue by its ID
func (repo *IssueRepository) GetByID(_ context.Context, id uuid.UUID) (*issue.Issue, error) {
	txn := repo.db.Txn(false)
	obj, err := txn.First(tableIssues, "id", id.String())
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	cpy := obj.(*issueRecord).Issue
	return &cpy, nil
}

// Create creates a new open issue
func (repo *IssueRepository) Create(_ context.Context, create *issue.Create) (*issue.Issue, error) {
	obj := &issue.Issue{
		ID:            uuid.New(),
		AssetUID:      create.AssetUID,
		AssetName:     create.AssetName,
		AssetLocation: create.AssetLocation,
		Description:   create.Description,
		Reporter:      create.Reporter,
		Status:        issue.StatusOpen,
		CreatedAt:     time.Now().UTC(),
	}

	txn := repo.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableIssues, newIssueRecord(obj)); err != nil {
		return nil, err
	}
	txn.Commit()

	return obj, nil
}

// UpdateStatus changes the status of an existing issue
func (repo *IssueRepository) UpdateStatus(_ context.Context, id uuid.UUID, status issue.Status) (*issue.Issue, error) {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tableIssues, "id", id.String())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	obj := raw.(*issueRecord).Issue
	obj.Status = status
	if status == issue.StatusResolved {
		now := time.Now().UTC()
		obj.ResolvedAt = &now
	} else {
		obj.ResolvedAt = nil
	}
	if err := txn.Insert(tableIssues, newIssueRecord(&obj)); err != nil {
		return nil, err
	}
	txn.Commit()

	return &obj, nil
}
