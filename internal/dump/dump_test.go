package dump_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondersell/wildsearch-indexer/internal/dump"
	"github.com/wondersell/wildsearch-indexer/internal/storetest"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

type fakeRepo struct {
	dumps        map[string]*types.Dump
	versionCount map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{dumps: map[string]*types.Dump{}, versionCount: map[string]int{}}
}

func (r *fakeRepo) Get(_ context.Context, job string) (*types.Dump, error) {
	d, ok := r.dumps[job]
	if !ok {
		return nil, assert.AnError
	}
	cp := *d
	return &cp, nil
}

func (r *fakeRepo) Save(_ context.Context, d *types.Dump) error {
	cp := *d
	r.dumps[d.Job] = &cp
	return nil
}

func (r *fakeRepo) CountVersions(_ context.Context, _ types.ID) (int, error) {
	return r.versionCount["x"], nil
}

func TestPrepare_MovesCreatedToPrepared(t *testing.T) {
	repo := newFakeRepo()
	repo.dumps["job1"] = &types.Dump{Job: "job1", StateCode: types.StateCreated, CreatedAt: time.Now()}

	d, err := dump.Prepare(context.Background(), repo, "job1")
	require.NoError(t, err)
	assert.Equal(t, types.StatePrepared, d.StateCode)
}

func TestPrepare_TooLateWhenAlreadyScheduled(t *testing.T) {
	repo := newFakeRepo()
	repo.dumps["job1"] = &types.Dump{Job: "job1", StateCode: types.StateScheduled}

	_, err := dump.Prepare(context.Background(), repo, "job1")
	require.Error(t, err)
	var stateErr *types.DumpStateError
	require.ErrorAs(t, err, &stateErr)
	assert.False(t, stateErr.TooEarly)
}

func TestImport_AcceptsPreparedDumpAndMarksProcessing(t *testing.T) {
	repo := newFakeRepo()
	repo.dumps["job1"] = &types.Dump{Job: "job1", StateCode: types.StatePrepared}

	d, err := dump.Import(context.Background(), repo, "job1")
	require.NoError(t, err)
	assert.Equal(t, types.StateProcessing, d.StateCode)
	assert.Equal(t, types.StateProcessing, repo.dumps["job1"].StateCode)
}

func TestWrap_CorruptedOnCountMismatch(t *testing.T) {
	repo := newFakeRepo()
	repo.dumps["job1"] = &types.Dump{Job: "job1", StateCode: types.StateProcessing, ItemsCrawled: 5}
	repo.versionCount["x"] = 3

	_, err := dump.Wrap(context.Background(), repo, "job1")
	require.Error(t, err)
	var corrupted *types.DumpCorruptedError
	require.ErrorAs(t, err, &corrupted)
	assert.Equal(t, 5, corrupted.Expected)
	assert.Equal(t, 3, corrupted.Actual)
}

func TestWrap_ProcessedOnCountMatch(t *testing.T) {
	repo := newFakeRepo()
	repo.dumps["job1"] = &types.Dump{Job: "job1", StateCode: types.StateProcessing, ItemsCrawled: 3}
	repo.versionCount["x"] = 3

	d, err := dump.Wrap(context.Background(), repo, "job1")
	require.NoError(t, err)
	assert.Equal(t, types.StateProcessed, d.StateCode)
}

func TestWrap_IsIdempotentOnceProcessed(t *testing.T) {
	repo := newFakeRepo()
	repo.dumps["job1"] = &types.Dump{Job: "job1", StateCode: types.StateProcessed, ItemsCrawled: 3}

	d, err := dump.Wrap(context.Background(), repo, "job1")
	require.NoError(t, err)
	assert.Equal(t, types.StateProcessed, d.StateCode)
}

func TestPrune_DeletesFactsVersionsAndTheDumpRowItself(t *testing.T) {
	st := storetest.NewFake()
	stuck := &types.Dump{ID: types.ID{1, 2, 3}, Job: "job1", StateCode: types.StatePrepared}

	err := dump.Prune(context.Background(), st, []*types.Dump{stuck})
	require.NoError(t, err)

	require.NotEmpty(t, st.ExecCalls)
	last := st.ExecCalls[len(st.ExecCalls)-1]
	assert.True(t, strings.Contains(last.SQL, "DELETE FROM wdf_dump"), "last statement should delete the dump row, got %q", last.SQL)
	assert.Equal(t, []any{stuck.ID}, last.Args)

	var sawVersionDelete bool
	for _, call := range st.ExecCalls {
		if strings.Contains(call.SQL, "DELETE FROM wdf_version") {
			sawVersionDelete = true
		}
	}
	assert.True(t, sawVersionDelete, "prune must delete wdf_version rows before the dump row")
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	stale := &types.Dump{StateCode: types.StatePrepared, CreatedAt: now.Add(-48 * time.Hour)}
	fresh := &types.Dump{StateCode: types.StatePrepared, CreatedAt: now.Add(-5 * time.Minute)}
	done := &types.Dump{StateCode: types.StateProcessed, CreatedAt: now.Add(-48 * time.Hour)}

	assert.True(t, dump.IsStale(stale, 24*time.Hour, now))
	assert.False(t, dump.IsStale(fresh, 24*time.Hour, now))
	assert.False(t, dump.IsStale(done, 24*time.Hour, now))
}
