package leads

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepositoryCreateAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	req := validRequest()
	created, err := repo.Create(ctx, &req)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := repo.GetByID(ctx, "org-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.FirstName, got.FirstName)

	_, err = repo.GetByID(ctx, "org-2", created.ID)
	assert.True(t, errors.Is(err, ErrLeadNotFound), "other orgs must not see the lead")
}

func TestInMemoryRepositoryCreateValidates(t *testing.T) {
	repo := NewInMemoryRepository()
	req := CreateLeadRequest{OrgID: "org-1", FirstName: "Ann"}
	_, err := repo.Create(context.Background(), &req)
	assert.ErrorIs(t, err, ErrMissingPhone)
}

func TestInMemoryRepositoryListByOrg(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Seed(
		Lead{ID: "a", OrgID: "org-1", Status: StatusNew},
		Lead{ID: "b", OrgID: "org-1", Status: StatusContacted},
		Lead{ID: "c", OrgID: "org-2", Status: StatusNew},
		Lead{ID: "d", OrgID: "org-1", Status: StatusNew},
	)
	ctx := context.Background()

	all, err := repo.ListByOrg(ctx, "org-1", ListLeadsFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d"}, ids(all))

	page, err := repo.ListByOrg(ctx, "org-1", ListLeadsFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(page))

	fresh, err := repo.ListByOrg(ctx, "org-1", ListLeadsFilter{Status: StatusNew})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, ids(fresh))

	empty, err := repo.ListByOrg(ctx, "org-1", ListLeadsFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInMemoryRepositoryGetMany(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Seed(Lead{ID: "a", OrgID: "org-1"}, Lead{ID: "b", OrgID: "org-1"})

	got, err := repo.GetMany(context.Background(), "org-1", []string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)

	_, err = repo.GetMany(context.Background(), "org-1", []string{"a", "zzz"})
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestInMemoryRepositoryApplyMerge(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Seed(
		Lead{ID: "a", OrgID: "org-1", FirstName: "Ann"},
		Lead{ID: "b", OrgID: "org-1"},
		Lead{ID: "c", OrgID: "org-1"},
	)
	ctx := context.Background()

	survivor := Lead{ID: "a", OrgID: "org-1", FirstName: "Ann", Tags: []string{"merged"}}
	require.NoError(t, repo.ApplyMerge(ctx, "org-1", &survivor, []string{"a", "b"}))

	all, err := repo.ListByOrg(ctx, "org-1", ListLeadsFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(all))
	assert.Equal(t, []string{"merged"}, all[0].Tags)
	assert.False(t, all[0].UpdatedAt.IsZero())

	err = repo.ApplyMerge(ctx, "org-1", &survivor, []string{"missing"})
	assert.ErrorIs(t, err, ErrLeadNotFound)
	_, err = repo.GetByID(ctx, "org-1", "c")
	assert.NoError(t, err, "failed merge must not delete anything")
}

func TestInMemoryRepositoryUpdateAndDelete(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Seed(Lead{ID: "a", OrgID: "org-1"})
	ctx := context.Background()

	require.NoError(t, repo.Update(ctx, &Lead{ID: "a", OrgID: "org-1", Email: "x@y.com"}))
	got, err := repo.GetByID(ctx, "org-1", "a")
	require.NoError(t, err)
	assert.Equal(t, "x@y.com", got.Email)

	assert.ErrorIs(t, repo.Update(ctx, &Lead{ID: "a", OrgID: "org-2"}), ErrLeadNotFound)
	require.NoError(t, repo.Delete(ctx, "org-1", "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "org-1", "a"), ErrLeadNotFound)
}

func TestInMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Seed(Lead{ID: "a", OrgID: "org-1", Tags: []string{"one"}})

	got, err := repo.GetByID(context.Background(), "org-1", "a")
	require.NoError(t, err)
	got.Tags[0] = "changed"

	again, err := repo.GetByID(context.Background(), "org-1", "a")
	require.NoError(t, err)
	assert.Equal(t, "one", again.Tags[0])
}

func ids(in []*Lead) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		out = append(out, l.ID)
	}
	return out
}
