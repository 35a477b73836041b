// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Layout(t *testing.T) {
	root := newRootCommand()

	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "reconcile", "backfill"}, names)

	debug := root.PersistentFlags().Lookup("debug")
	require.NotNil(t, debug)
	assert.Equal(t, "d", debug.Shorthand)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestRootCommand_RequiresProviderKey(t *testing.T) {
	t.Setenv("RECORDING_PROVIDER_API_KEY", "")

	root := newRootCommand()
	root.SetArgs([]string{"backfill"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECORDING_PROVIDER_API_KEY")
}

func TestServeCommand_ListenFlags(t *testing.T) {
	serve, _, err := newRootCommand().Find([]string{"serve"})
	require.NoError(t, err)

	port := serve.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
	assert.NotNil(t, serve.Flags().Lookup("bind"))
}
