// ogc-tester runs CWL application-package patterns against an OGC API
// Processes server: deploy, execute, monitor under a timeout, and always
// clean up.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ogctester/internal/config"
	"ogctester/internal/ogc"
	"ogctester/internal/pattern"
)

// version is injected at build time.
var version = "dev"

type globalOptions struct {
	configFile    string
	serverURL     string
	token         string
	patternsDir   string
	downloadDir   string
	forceDownload bool
	verbose       bool
	metricsPort   int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "ogc-tester",
		Short:         "Test CWL application-package patterns against an OGC API Processes server",
		Long: `ogc-tester deploys CWL application-package patterns to an OGC API
Processes server, executes them with their default parameters, monitors the
resulting jobs under a timeout, and releases every server-side resource it
created, whatever the outcome.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "path to a JSON server configuration file")
	pf.StringVar(&opts.serverURL, "server-url", "", "OGC API Processes server base URL (overrides config and OGC_SERVER_URL)")
	pf.StringVar(&opts.token, "token", "", "bearer token (overrides config and OGC_BEARER_TOKEN)")
	pf.StringVar(&opts.patternsDir, "patterns-dir", "patterns", "directory holding per-pattern parameter files")
	pf.StringVar(&opts.downloadDir, "download-dir", "workflows", "directory caching downloaded workflow documents")
	pf.BoolVar(&opts.forceDownload, "force-download", false, "re-download workflows even when cached")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	pf.IntVar(&opts.metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")

	root.AddCommand(
		newRunCmd(opts),
		newListCmd(opts),
		newDescribeCmd(opts),
		newJobsCmd(opts),
		newCleanupCmd(opts),
		newDownloadCmd(opts),
		newSyncParamsCmd(opts),
		newCheckCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (g *globalOptions) loadConfig() (*config.ServerConfig, error) {
	return config.Load(g.configFile, g.serverURL, g.token)
}

func (g *globalOptions) newClient() (*ogc.Client, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return ogc.NewClient(cfg), nil
}

func (g *globalOptions) newStore() (*pattern.Store, error) {
	return pattern.NewStore(g.patternsDir, g.downloadDir)
}

// resolvePatternIDs expands command arguments to the pattern ids to act
// on: explicit ids are validated, --all lists the store.
func resolvePatternIDs(store *pattern.Store, args []string, all bool) ([]string, error) {
	if all {
		if len(args) > 0 {
			return nil, fmt.Errorf("--all and explicit pattern ids are mutually exclusive")
		}
		ids, err := store.List()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("no patterns found in %s", store.PatternsDir())
		}
		return ids, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("specify pattern ids or --all")
	}
	for _, id := range args {
		if !pattern.ValidID(id) {
			return nil, fmt.Errorf("malformed pattern id %q, expected pattern-<n>", id)
		}
	}
	return args, nil
}
