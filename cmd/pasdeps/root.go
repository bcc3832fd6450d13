package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/resolver"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/slogutil"
	"github.com/GuardianFree/PascalDepsAnalyzer/internal/version"
)

var (
	verbosity int
	quiet     bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pasdeps",
	Short: "Dependency analyzer for Pascal monorepos",
	Long: `pasdeps builds unit dependency graphs for Delphi/Pascal projects the
way the compiler would see them: conditional compilation is evaluated,
include files are followed, and search paths resolve collisions in
declared order.

Built for CI in monorepos: given the files a commit touched, it reports
which projects need rebuilding and retesting.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("pasdeps version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Suppress all log output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "human",
		"Log format (human, json)")
}

// newLogger builds the command logger from the persistent flags. Logs go
// to stderr; stdout carries only command output.
func newLogger() *slog.Logger {
	return slogutil.NewLoggerAt(os.Stderr, logFormat,
		slogutil.LevelFromVerbosity(verbosity, quiet))
}

// repoRootFromCwd finds the enclosing repository root, falling back to the
// working directory outside a checkout.
func repoRootFromCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return resolver.FindRepoRoot(cwd)
}
