package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/internal/testutil"
)

// Interface compliance (compile-time assertion)
var _ core.AssetRepository = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "assets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	testutil.RepositoryContract(t, func(t *testing.T) core.AssetRepository {
		return newTestStore(t)
	})
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "assets.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	a, err := s.Create(ctx, core.AssetInput{
		Name:     "digest",
		DataType: core.DataTypeText,
		Content:  core.Text("Email Summary:\nFrom: a@x.com"),
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, core.Text("Email Summary:\nFrom: a@x.com"), all[0].Content)
	assert.NoError(t, s.Ping(ctx))
}
