package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"generate", "history", "query"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "leadgen", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestHistoryCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range historyCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "search", "delete", "clear", "stats"} {
		assert.True(t, names[name], "expected history subcommand %q not found", name)
	}
}

func TestGenerateCommand_Flags(t *testing.T) {
	for _, name := range []string{"industry", "location", "keywords", "exclude", "format", "max-results", "wordpress-only", "no-history", "top", "metrics-addr"} {
		require.NotNil(t, generateCmd.Flags().Lookup(name), "generate should have --%s", name)
	}
	assert.Equal(t, "json", generateCmd.Flags().Lookup("format").DefValue)
}

func TestHistoryListCommand_Flags(t *testing.T) {
	flag := historyListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "100", flag.DefValue)
}
