package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()

	for _, name := range []string{"serve", "worker", "migrate", "parse-eligibility", "parse-evaluation", "embed", "seed-prompts"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	embed, _, err := root.Find([]string{"embed"})
	require.NoError(t, err)
	assert.NotNil(t, embed.Flags().Lookup("force"))

	parse, _, err := root.Find([]string{"parse-eligibility"})
	require.NoError(t, err)
	assert.Nil(t, parse.Flags().Lookup("force"))
	assert.NotNil(t, parse.Flags().Lookup("limit"))
}

func TestLoadSeed(t *testing.T) {
	_, err := loadSeed("", false)
	assert.Error(t, err)

	_, err = loadSeed("prompts.yaml", true)
	assert.Error(t, err)

	f, err := loadSeed("", true)
	require.NoError(t, err)
	assert.NotEmpty(t, f.Versions)
}
