package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/gogpu/shadercache/fingerprint"
)

func (c *CLI) newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <files...>",
		Short: "Print the combined content fingerprint of the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp := fingerprint.New()
			for _, path := range args {
				if err := fp.AddFile(path); err != nil {
					return zerr.Wrap(err, "failed to hash file")
				}
			}
			cmd.Printf("%016x\n", fp.Sum())
			return nil
		},
	}
}
