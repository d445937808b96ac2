package commands

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/shadercache/manifest"
)

// ErrBuildFailed reports that at least one program failed to compile.
var ErrBuildFailed = zerr.New("one or more programs failed to build")

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile every program in a manifest and write its cache file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("manifest")
			force, _ := cmd.Flags().GetBool("force")
			jobs, _ := cmd.Flags().GetInt("jobs")

			m, err := manifest.Load(path)
			if err != nil {
				return err
			}
			dir := filepath.Dir(path)

			var (
				mu     sync.Mutex
				failed []string
			)
			g := new(errgroup.Group)
			if jobs > 0 {
				g.SetLimit(jobs)
			}
			for i := range m.Programs {
				p := &m.Programs[i]
				g.Go(func() error {
					prog, err := p.Configure(dir, m.Deps)
					if err != nil {
						return err
					}
					defer prog.Close()

					if err := prog.Compile(force); err != nil {
						mu.Lock()
						failed = append(failed, fmt.Sprintf("%s: %s", p.Name, prog.ErrorMessage()))
						mu.Unlock()
						return nil
					}
					mu.Lock()
					cmd.Printf("%-20s %s (%s)\n", p.Name, p.Cache, prog.Status())
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if len(failed) > 0 {
				for _, f := range failed {
					cmd.PrintErrln("failed: " + f)
				}
				return ErrBuildFailed
			}
			return nil
		},
	}
	cmd.Flags().StringP("manifest", "f", "shaders.yaml", "Manifest file to build")
	cmd.Flags().Bool("force", false, "Recompile even when the cache is valid")
	cmd.Flags().IntP("jobs", "j", 0, "Max concurrent program builds (0 = unlimited)")
	return cmd
}
