package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

func ChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Generate CHANGELOG.md from git history",
		Long: `Generates the changelog with git-chglog from conventional commits
(<type>[scope]: <description>; types: feat, fix, docs, refactor, test,
perf, build, ci, chore).

Install the generator with:
  go install github.com/git-chglog/git-chglog/cmd/git-chglog@latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := exec.LookPath("git-chglog"); err != nil {
				return fmt.Errorf("git-chglog not installed: %w", err)
			}

			output := cmd.Flag("output").Value.String()
			next := cmd.Flag("next").Value.String()
			tag := cmd.Flag("tag").Value.String()

			chglogArgs := []string{"--output", output}
			if next != "" {
				chglogArgs = append(chglogArgs, "--next-tag", next)
			}
			if tag != "" {
				chglogArgs = append(chglogArgs, tag)
			}

			slog.Info("running git-chglog", "args", chglogArgs)
			gen := exec.Command("git-chglog", chglogArgs...)
			gen.Stdout = os.Stdout
			gen.Stderr = os.Stderr
			if err := gen.Run(); err != nil {
				return fmt.Errorf("could not generate changelog: %w", err)
			}
			slog.Info("changelog written", "output", output)
			return nil
		},
	}

	cmd.Flags().String("next", "", "include unreleased commits under this version tag")
	cmd.Flags().String("output", "CHANGELOG.md", "output file")
	cmd.Flags().String("tag", "", "generate for a single tag")

	return cmd
}
