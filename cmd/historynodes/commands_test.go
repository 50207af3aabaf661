package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/chaintesting"
	"github.com/Metalcape/zebra-flyclient/upgrade"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "NOOP"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// newChainDB finalizes a chain up to tip in a database on disk and closes it
func newChainDB(t *testing.T, tip chain.Height) string {
	dir := t.TempDir()
	c := chaintesting.NewChain(t, chaintesting.TestConfig{
		StartTimeMS:     1_700_000_000_000,
		TestLabelPrefix: "cli",
		DBPath:          dir,
	}, tip)
	require.NoError(t, c.DB.Close())
	return dir
}

func TestCommands(t *testing.T) {
	dir := newChainDB(t, 50)

	out, err := execute(t, "inspect", "--db", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "network: cli")
	assert.Contains(t, out, "format: unset")
	assert.Contains(t, out, "tip: 50 (Nu5)")
	assert.Contains(t, out, "history tree: Nu5, 6 leaves")
	assert.NotContains(t, out, "history nodes")

	// nothing has been written yet
	_, err = execute(t, "check", "--db", dir)
	var missing *upgrade.MissingNodeError
	assert.ErrorAs(t, err, &missing)

	_, err = execute(t, "run", "--db", dir)
	require.NoError(t, err)

	out, err = execute(t, "check", "--db", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "history nodes up to height 50 are valid")

	out, err = execute(t, "inspect", "--db", dir)
	require.NoError(t, err)
	// 20, 15 and 6 leaves
	assert.Contains(t, out, "history nodes Heartwood: 38")
	assert.Contains(t, out, "history nodes Canopy: 26")
	assert.Contains(t, out, "history nodes Nu5: 10")
}

func TestUpgradeCommand(t *testing.T) {
	dir := newChainDB(t, 35)

	_, err := execute(t, "upgrade", "--db", dir)
	require.NoError(t, err)

	out, err := execute(t, "inspect", "--db", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "format: "+upgrade.HistoryNodesFormat.String())
	assert.Contains(t, out, "history nodes Canopy: 10")

	// a lower tip only checks the nodes below it
	out, err = execute(t, "check", "--db", dir, "--tip", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "up to height 20")
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "run")
	assert.ErrorIs(t, err, ErrDBRequired)

	dir := newChainDB(t, 5)
	_, err = execute(t, "inspect", "--db", dir, "--network", "Mainnet")
	assert.Error(t, err)

	_, err = execute(t, "run", "--db", dir, "--tip", "4294967296")
	assert.ErrorIs(t, err, chain.ErrHeightRange)
}
