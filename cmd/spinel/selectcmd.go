package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/spinel/internal/core/refine"
	"github.com/agenthands/spinel/internal/flags"
)

func newSelectCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "select COLLECTION",
		Short: "Replace flagged canonicals with a better duplicate",
		Long: `Check the quality flags of every canonical in COLLECTION and, for those
flagged as theoretical, high-pressure or high-temperature, look for a
duplicate without any of these flags. When one exists the canonical is
replaced, preferring duplicates from the COD, then the ICSD, then the MPDS,
based on the permissiveness of the database licenses.

Without --apply only the planned replacements are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			table, err := flags.Load(a.cfg.Refine.FlagDir, a.cfg.Refine.Priority)
			if err != nil {
				return err
			}

			refiner := refine.NewRefiner(a.store, table, a.cfg.Refine.Priority, a.log)
			ws, replacements, err := refiner.Plan(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if apply {
				if err := a.store.Apply(cmd.Context(), ws); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"replacements": replacements,
				"write_set":    ws,
				"applied":      apply,
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "apply the replacements instead of only reporting them")

	return cmd
}
