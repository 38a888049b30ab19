package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/spinel/internal/core/model"
)

func shComparator(script string) *CommandComparator {
	return &CommandComparator{Command: "sh", Args: []string{"-c", script}}
}

func TestCommandComparatorFit(t *testing.T) {
	// The helper sees the params on stdin and answers on stdout.
	c := shComparator(`grep -q ltol && echo '{"match": true}' || echo '{"match": false}'`)

	match, err := c.Fit(context.Background(), DefaultParams(), model.Structure{UUID: "a"}, model.Structure{UUID: "b"})
	require.NoError(t, err)
	assert.True(t, match)
}

func TestCommandComparatorHelperError(t *testing.T) {
	c := shComparator(`cat >/dev/null; echo '{"match": false, "error": "no lattice"}'`)

	_, err := c.Fit(context.Background(), DefaultParams(), model.Structure{UUID: "a"}, model.Structure{UUID: "b"})
	assert.ErrorContains(t, err, "no lattice")
}

func TestCommandComparatorMissingBinary(t *testing.T) {
	c := &CommandComparator{Command: "/nonexistent/spinel-matcher"}

	_, err := c.Fit(context.Background(), DefaultParams(), model.Structure{}, model.Structure{})
	assert.ErrorContains(t, err, "failed")
}

func TestCommandComparatorTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := shComparator(`sleep 5`)
	_, err := c.Fit(ctx, DefaultParams(), model.Structure{UUID: "a"}, model.Structure{UUID: "b"})
	assert.ErrorContains(t, err, "timed out")
}

func TestCommandComparatorGarbageOutput(t *testing.T) {
	c := shComparator(`cat >/dev/null; echo 'not json'`)

	_, err := c.Fit(context.Background(), DefaultParams(), model.Structure{}, model.Structure{})
	assert.ErrorContains(t, err, "decode")
}

func TestCommandSymmetrySpaceGroup(t *testing.T) {
	c := &CommandSymmetry{Command: "sh", Args: []string{"-c", `cat >/dev/null; echo '{"spacegroup": "P2_1/c"}'`}}

	symbol, err := c.SpaceGroup(context.Background(), model.Structure{UUID: "a"}, 0.005)
	require.NoError(t, err)
	assert.Equal(t, "P2_1/c", symbol)
}

func TestCommandSymmetryEmptyResult(t *testing.T) {
	c := &CommandSymmetry{Command: "sh", Args: []string{"-c", `cat >/dev/null; echo '{}'`}}

	_, err := c.SpaceGroup(context.Background(), model.Structure{UUID: "a"}, 0.005)
	assert.ErrorContains(t, err, "no space group")
}
