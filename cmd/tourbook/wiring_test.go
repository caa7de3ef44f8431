package main

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tourbook/internal/adapter/blob"
	"tourbook/internal/config"
)

func TestOpenRepositories_MemoryFallback(t *testing.T) {
	repos, err := openRepositories(config.Config{}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = repos.close() }()

	exps, err := repos.experiences.ListExperiences(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, exps)

	n, err := repos.users.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenBlobStore(t *testing.T) {
	store, closeFn, err := openBlobStore(context.Background(), config.Config{BlobBackend: config.BackendDisk})
	require.NoError(t, err)
	assert.IsType(t, &blob.DiskStore{}, store)
	assert.NoError(t, closeFn())

	_, _, err = openBlobStore(context.Background(), config.Config{BlobBackend: config.BackendSupabase})
	assert.Error(t, err)
}

func TestCreateAdminFlagsRequired(t *testing.T) {
	for _, name := range []string{"username", "email", "password"} {
		f := createAdminCmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, []string{"true"}, f.Annotations[cobra.BashCompOneRequiredFlag], name)
	}
}

func TestServe_RejectsInvalidConfig(t *testing.T) {
	err := serve(context.Background(), config.Config{BlobBackend: "ftp"})
	assert.ErrorContains(t, err, "config")
}
