package cli

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// snapshotsCommand creates the snapshots listing command.
func (c *CLI) snapshotsCommand() *cobra.Command {
	var localRoot string

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List available snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.newSource(localRoot)
			if err != nil {
				return err
			}

			descriptors, err := src.Snapshots(cmd.Context())
			if err != nil {
				return err
			}
			if len(descriptors) == 0 {
				printInfo("No snapshots available")
				return nil
			}

			for _, d := range descriptors {
				printKeyValue(d.ID, d.Path)
				printDetail("%s · %d files", humanize.Bytes(uint64(d.Size)), d.FileCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&localRoot, "local", "", "scan a local directory instead of the backend")
	return cmd
}
