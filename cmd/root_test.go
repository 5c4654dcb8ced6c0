package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrade/framegrade/internal/buildinfo"
)

func TestRootCommandWiring(t *testing.T) {
	root := RootCommand(buildinfo.NewContext("test", "2026-10-01"))

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"file", "directory", "probe", "history"})

	for _, flag := range []string{"config", "debug", "model", "classes", "batchsize", "workers", "framerate", "format", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}

	dir, _, err := root.Find([]string{"directory"})
	require.NoError(t, err)
	assert.NotNil(t, dir.Flags().Lookup("recursive"))
	assert.Equal(t, "test (built 2026-10-01)", root.Version)
}
