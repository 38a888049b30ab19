package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenthands/spinel/internal/store"
)

func newStatsCmd() *cobra.Command {
	var (
		partialOcc   bool
		noPartialOcc bool
	)

	cmd := &cobra.Command{
		Use:   "stats [COLLECTION]",
		Short: "Count structures, overall or in one collection",
		Args:  cobra.MaximumNArgs(1),
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

			if len(args) == 0 {
				count, err := a.store.CountAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println(count)
				return nil
			}

			if occupancies == nil {
				count, err := a.store.CountCollection(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Println(count)
				return nil
			}

			records, err := a.store.FetchCollection(cmd.Context(), args[0], store.Filter{PartialOccupancies: occupancies})
			if err != nil {
				return err
			}
			fmt.Println(len(records))
			return nil
		},
	}

	cmd.Flags().BoolVar(&partialOcc, "partial-occupancies", false, "count only structures with partial occupancies")
	cmd.Flags().BoolVar(&noPartialOcc, "no-partial-occupancies", false, "count only structures without partial occupancies")

	return cmd
}
