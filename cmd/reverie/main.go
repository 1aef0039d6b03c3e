// Command reverie is the journaling engine CLI and HTTP server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognicore/reverie/pkg/reverie/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	storePath  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "reverie",
		Short: "Personal thought journal with local text analytics",
		Long: `reverie stores free-form thoughts, categorises them, groups related
thoughts into clusters and produces weekly recaps.

Settings come from built-in defaults, an optional YAML file (--config) and
REVERIE_* environment variables, in that order. The CLI commands need a
persistent store:

  reverie --store-path journal.db add "Call the plumber tomorrow"`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML settings file")
	root.PersistentFlags().StringVar(&flags.storePath, "store-path", "", "SQLite database path (selects the sqlite driver)")

	root.AddCommand(
		newServeCmd(flags),
		newAddCmd(flags),
		newListCmd(flags),
		newDeleteCmd(flags),
		newAnalyzeCmd(flags),
		newCategorizeCmd(flags),
		newClusterCmd(flags),
		newSearchCmd(flags),
		newRelatedCmd(flags),
		newRecapCmd(flags),
		newExportCmd(flags),
		newImportCmd(flags),
	)
	return root
}

// loadSettings reads the layered settings and applies flag overrides.
func (f *rootFlags) loadSettings() (*config.Settings, error) {
	s, err := config.LoadSettings(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.storePath != "" {
		s.Store.Driver = config.DriverSQLite
		s.Store.Path = f.storePath
	}
	return s, nil
}

// open builds the app for one command invocation.
func (f *rootFlags) open(cmd *cobra.Command) (*app, error) {
	s, err := f.loadSettings()
	if err != nil {
		return nil, err
	}
	a, err := buildApp(cmd.Context(), s)
	if err != nil {
		return nil, fmt.Errorf("start reverie: %w", err)
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
