package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/spinel/internal/server"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the uniqueness engine over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			if port == "" {
				port = os.Getenv("PORT")
			}
			if port == "" {
				port = "8080"
			}

			srv := server.NewServer(a.cfg, a.store, a.log)
			r := srv.SetupRouter()

			a.log.Info("starting server on port " + port)
			return r.Run(":" + port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (default $PORT or 8080)")

	return cmd
}
