package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grow-with-growth/growyourneed/internal/content"
)

func newProbeCmd() *cobra.Command {
	var manifest bool
	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Check whether a URL is alive",
		Long: `Runs the same liveness check the aggregator uses. With --manifest the URL
must serve an HLS playlist; otherwise a HEAD request must answer 200, 301, or 302.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = appInstance.Close() }()

			kind := content.ProbeGeneric
			if manifest {
				kind = content.ProbeStreamManifest
			}
			alive := appInstance.Prober().Probe(cmd.Context(), args[0], kind)
			status := "dead"
			if alive {
				status = "alive"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", status, args[0], kind)
			if !alive {
				return fmt.Errorf("%s is not reachable", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&manifest, "manifest", false, "require an HLS manifest body")
	return cmd
}
