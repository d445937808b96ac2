package commands

import (
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/gogpu/shadercache/cachefile"
)

func (c *CLI) newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <cachefile>",
		Short: "Dump a cache file's header and records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return zerr.Wrap(err, "failed to read cache file")
			}
			f, err := cachefile.Decode(data)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to decode cache file"), "path", args[0])
			}

			cmd.Printf("backend:      %s\n", f.BackendVersion)
			cmd.Printf("profile:      %s\n", f.Profile)
			cmd.Printf("content hash: %016x\n", f.ContentHash)
			cmd.Printf("records:      %d\n", len(f.Records))
			for _, rec := range f.Records {
				cmd.Printf("  %-8s %-24s %d words\n", rec.Stage, rec.Name, len(rec.Code))
			}
			return nil
		},
	}
}
