package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetflow/core"
)

// RepositoryContract runs the behavior every core.AssetRepository backend
// must share. newRepo must return an empty repository.
func RepositoryContract(t *testing.T, newRepo func(t *testing.T) core.AssetRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("create returns canonical asset", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.Create(ctx, core.AssetInput{
			Name:     "inbox",
			FileType: core.FileTypeJSON,
			DataType: core.DataTypeEmailList,
			Content:  core.EmailList{{Subject: "Hi", From: "a@x.com"}},
			Tags:     []string{"mail"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, core.AssetStatusReady, a.Status)
		assert.Equal(t, 1, a.Metadata.Version)
		assert.Equal(t, core.EmailList{{Subject: "Hi", From: "a@x.com"}}, a.Content)
		assert.Equal(t, []string{"mail"}, a.Metadata.Tags)
	})

	t.Run("create rejects blank name", func(t *testing.T) {
		_, err := newRepo(t).Create(ctx, core.AssetInput{Name: " "})
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("update bumps version", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.Create(ctx, core.AssetInput{Name: "s", DataType: core.DataTypeText, Content: core.Text("v1")})
		require.NoError(t, err)

		b, err := repo.Update(ctx, a.ID, core.AssetInput{Name: "s2", DataType: core.DataTypeText, Content: core.Text("v2")})
		require.NoError(t, err)
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, "s2", b.Name)
		assert.Equal(t, core.Text("v2"), b.Content)
		assert.Equal(t, 2, b.Metadata.Version)

		_, err = repo.Update(ctx, "missing", core.AssetInput{Name: "x"})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("list filters by data type", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, core.AssetInput{Name: "t", DataType: core.DataTypeText, Content: core.Text("x")})
		require.NoError(t, err)
		_, err = repo.Create(ctx, core.AssetInput{Name: "l", DataType: core.DataTypeEmailList, Content: core.EmailList{}})
		require.NoError(t, err)

		all, err := repo.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		texts, err := repo.List(ctx, core.DataTypeText)
		require.NoError(t, err)
		require.Len(t, texts, 1)
		assert.Equal(t, "t", texts[0].Name)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.Create(ctx, core.AssetInput{Name: "gone"})
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, a.ID))
		assert.ErrorIs(t, repo.Delete(ctx, a.ID), core.ErrNotFound)

		all, err := repo.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("upload and download", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.Upload(ctx, core.FileUpload{FileName: "report.csv", ContentType: "text/csv", Data: []byte("a,b\n1,2\n")})
		require.NoError(t, err)
		assert.Equal(t, core.DataTypeFile, a.DataType)
		assert.Equal(t, "report.csv", a.Name)
		ref, ok := a.Content.(core.FileRef)
		require.True(t, ok)
		assert.Equal(t, int64(8), ref.Size)

		data, err := repo.Download(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("a,b\n1,2\n"), data)

		_, err = repo.Download(ctx, "missing")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}
