package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"enrich", "import", "migrate", "serve", "sources"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "rental-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestImportCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range importCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"apns", "addresses", "listings"} {
		assert.True(t, names[name], "import should have subcommand %q", name)
	}
}

func TestImportCommands_Flags(t *testing.T) {
	for _, c := range []string{"apns", "addresses", "listings"} {
		sub, _, err := importCmd.Find([]string{c})
		require.NoError(t, err)
		for _, flagName := range []string{"file", "concurrency", "chunk-size", "pace"} {
			assert.NotNil(t, sub.Flags().Lookup(flagName), "import %s should have --%s flag", c, flagName)
		}
	}
	assert.NotNil(t, importListingsCmd.Flags().Lookup("source"))
	assert.Nil(t, importAPNsCmd.Flags().Lookup("source"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestEnrichCommand_RequiresArgs(t *testing.T) {
	assert.Error(t, enrichCmd.Args(enrichCmd, nil))
	assert.NoError(t, enrichCmd.Args(enrichCmd, []string{"007-123-456"}))
}
