package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

// Host builds keep cgo enabled for the hidapi-backed MCP2221 adapter;
// cross builds target boards served by the pure Go adapters.
var targets = map[string]struct{ os, arch string }{
	"host":   {runtime.GOOS, runtime.GOARCH},
	"nanopi": {"linux", "arm"},
}

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the motion cli for the host or a target board",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := cmd.Flag("target").Value.String()
			version := cmd.Flag("version").Value.String()
			t, ok := targets[target]
			if !ok {
				return fmt.Errorf("unknown target %q", target)
			}

			docker, err := cmd.Flags().GetBool("docker")
			if err != nil {
				return fmt.Errorf("could not get docker flag: %w", err)
			}
			if docker {
				noCache, err := cmd.Flags().GetBool("no-cache")
				if err != nil {
					return fmt.Errorf("could not get no-cache flag: %w", err)
				}
				return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", t.os, t.arch), []string{"build", "--target", target, "--version", version}, build.DockerBuildOpts{
					NoCache: noCache,
					Image:   "gophertribe/gobuild:1.25-bookworm",
				})
			}

			native := t.os == runtime.GOOS && t.arch == runtime.GOARCH
			return build.GoBuild(fmt.Sprintf("dist/motion-%s-%s", t.os, t.arch), "./cmd/motion", build.GoBuildOpts{
				Version:       version,
				InjectVersion: true,
				ConfigPackage: "github.com/mklimuk/motion/cmd/motion",
				EnableCgo:     native,
				OS:            t.os,
				Arch:          t.arch,
			})
		},
	}
	cmd.Flags().String("target", "host", "build target: host or nanopi")
	cmd.Flags().String("version", "latest", "version stamped into the binary")
	cmd.Flags().Bool("docker", false, "build inside the gobuild container")
	cmd.Flags().Bool("no-cache", false, "do not use the docker build cache")

	return cmd
}
