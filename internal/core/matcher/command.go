package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/agenthands/spinel/internal/core/model"
)

// CommandComparator delegates the equivalence judgement to an external
// helper binary (typically a thin pymatgen StructureMatcher wrapper). One
// process per call, request on stdin, verdict on stdout; the process holds
// no state between calls, so the comparator is safe for concurrent workers.
type CommandComparator struct {
	Command string
	Args    []string
}

type fitRequest struct {
	Params Params          `json:"params"`
	A      json.RawMessage `json:"a"`
	B      json.RawMessage `json:"b"`
}

type fitResponse struct {
	Match bool   `json:"match"`
	Error string `json:"error,omitempty"`
}

func (c *CommandComparator) Fit(ctx context.Context, params Params, a, b model.Structure) (bool, error) {
	req := fitRequest{Params: params, A: a.Geometry, B: b.Geometry}
	var resp fitResponse
	if err := runJSON(ctx, c.Command, c.Args, req, &resp); err != nil {
		return false, err
	}
	if resp.Error != "" {
		return false, fmt.Errorf("comparator: %s", resp.Error)
	}
	return resp.Match, nil
}

// CommandSymmetry computes space-group symbols through an external helper
// binary (an spglib wrapper). Its SpaceGroup method satisfies
// bucket.SpaceGroupFunc.
type CommandSymmetry struct {
	Command string
	Args    []string
}

type symmetryRequest struct {
	Symprec   float64         `json:"symprec"`
	Structure json.RawMessage `json:"structure"`
}

type symmetryResponse struct {
	SpaceGroup string `json:"spacegroup"`
	Error      string `json:"error,omitempty"`
}

func (c *CommandSymmetry) SpaceGroup(ctx context.Context, s model.Structure, symprec float64) (string, error) {
	req := symmetryRequest{Symprec: symprec, Structure: s.Geometry}
	var resp symmetryResponse
	if err := runJSON(ctx, c.Command, c.Args, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("symmetry: %s", resp.Error)
	}
	if resp.SpaceGroup == "" {
		return "", fmt.Errorf("symmetry helper returned no space group")
	}
	return resp.SpaceGroup, nil
}

func runJSON(ctx context.Context, command string, args []string, req, resp interface{}) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out: %w", command, ctx.Err())
		}
		return fmt.Errorf("%s failed: %w (stderr: %s)", command, err, stderr.String())
	}

	if err := json.Unmarshal(stdout.Bytes(), resp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", command, err)
	}
	return nil
}
