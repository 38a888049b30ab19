package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/spinel/internal/core"
	"github.com/agenthands/spinel/internal/store"
)

func newUniqCmd() *cobra.Command {
	var (
		contains     []string
		skip         []string
		maxSize      int
		partialOcc   bool
		noPartialOcc bool
		createTarget bool
		dryRun       bool
		limit        int
		strategy     string
		noSpaceGroup bool
	)

	cmd := &cobra.Command{
		Use:   "uniq SOURCE TARGET",
		Short: "Reconcile candidate structures into the unique reference collection",
		Long: `Perform a uniqueness analysis between two collections of structures.

Candidates from SOURCE are bucketed by reduced chemical formula (and, unless
disabled, space group), clustered against the TARGET reference collection
within each bucket, and folded into TARGET: duplicate sets of established
canonicals are extended, new prototypes are added as new canonicals. All
mutations are computed up front and applied in one transaction; --dry-run
prints the write-set without applying it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			occupancies, err := partialOccupancyFilter(cmd)
			if err != nil {
				return err
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			engine, err := core.FromConfig(a.cfg, a.store, a.log, core.Options{
				Strategy:     strategy,
				NoSpaceGroup: noSpaceGroup,
			})
			if err != nil {
				return err
			}

			filter := store.Filter{
				ContainsElements:   contains,
				SkipElements:       skip,
				MaxSites:           maxSize,
				PartialOccupancies: occupancies,
				Limit:              limit,
			}

			ws, report, err := engine.Reconcile(cmd.Context(), core.ReconcileOptions{
				Source:       args[0],
				Target:       args[1],
				Filter:       filter,
				CreateTarget: createTarget,
				DryRun:       dryRun,
			})
			if err != nil {
				return err
			}

			if !dryRun {
				if err := engine.Apply(cmd.Context(), ws); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{"report": report, "write_set": ws})
		},
	}

	cmd.Flags().StringArrayVarP(&contains, "contains", "c", nil, "only structures containing this element (repeatable)")
	cmd.Flags().StringArrayVarP(&skip, "skip", "S", nil, "skip structures containing this element (repeatable)")
	cmd.Flags().IntVar(&maxSize, "max-size", 0, "only structures with at most this many sites")
	cmd.Flags().BoolVar(&partialOcc, "partial-occupancies", false, "only structures with partial occupancies")
	cmd.Flags().BoolVar(&noPartialOcc, "no-partial-occupancies", false, "only structures without partial occupancies")
	cmd.Flags().BoolVar(&createTarget, "create-target", false, "create the target collection if it does not exist")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and print the write-set without applying it")
	cmd.Flags().IntVar(&limit, "limit", 0, "limit the number of candidate structures")
	cmd.Flags().StringVar(&strategy, "strategy", "", "cluster strategy: components or greedy (default from config)")
	cmd.Flags().BoolVar(&noSpaceGroup, "no-spacegroup", false, "bucket by formula only, without space-group stratification")

	return cmd
}
