package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verdantlabs/earthengine-cli/internal/auth"
	"github.com/verdantlabs/earthengine-cli/internal/aliasfile"
	"github.com/verdantlabs/earthengine-cli/internal/config"
	"github.com/verdantlabs/earthengine-cli/internal/logging"
	"github.com/verdantlabs/earthengine-cli/internal/ui"
)

func newRootCmd(app *App) *cobra.Command {
	// Global flags
	var (
		debugMode    bool
		projectName  string
		queryFlag    string
		jqFlag       string
		fieldsFlag   string
		pickFlag     string
		jsonPathFlag string
		queryFile    string
		errorFormat  string
		quietFlag    bool
		failEmpty    bool
		compactJSON  bool
		deadlineFlag string
		profileFlag  bool
		dryRunFlag   bool

		yesFlag         bool
		limitFlag       int
		sortBy          string
		descFlag        bool
		resultsOnlyFlag bool
	)

	rootCmd := &cobra.Command{
		Use:   "earthengine",
		Short: "CLI for the Earth Engine API",
		Long:  `A command-line interface for Google Earth Engine: authentication, assets, tasks, maps, and ingestion.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Ensure Cobra doesn't emit its own error/usage text; we handle error output centrally.
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			// Configure slog based on debug flag
			logging.Setup(debugMode, app.Stderr)

			// Load config file (skip for config commands to avoid recursion)
			var cfg *config.Config
			if cmd.Name() != "config" && (cmd.Parent() == nil || cmd.Parent().Name() != "config") {
				loadedCfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg = loadedCfg
			} else {
				cfg = &config.Config{}
			}

			opts, err := parseGlobalOptions(cmd, cfg, app.Stdout, globalFlagInput{
				projectName:     projectName,
				queryFlag:       queryFlag,
				jqFlag:          jqFlag,
				fieldsFlag:      fieldsFlag,
				pickFlag:        pickFlag,
				jsonPathFlag:    jsonPathFlag,
				quietFlag:       quietFlag,
				failEmptyFlag:   failEmpty,
				compactJSON:     compactJSON,
				deadlineFlag:    deadlineFlag,
				profileFlag:     profileFlag,
				dryRunFlag:      dryRunFlag,
				yesFlag:         yesFlag,
				limitFlag:       limitFlag,
				sortBy:          sortBy,
				descFlag:        descFlag,
				resultsOnlyFlag: resultsOnlyFlag,
				errorFormat:     errorFormat,
			})
			if err != nil {
				return err
			}
			if err := validateGlobalOptions(&opts); err != nil {
				return err
			}

			// Inject parsed global options into context so subcommands can access them.
			ctx := buildRootContext(cmd.Context(), app, cfg, debugMode, opts)
			if opts.queryNormalized && !opts.quiet {
				ui.FromContext(ctx).Warning("Normalized --query by removing \\! (shell escape); use ! without backslash.")
			}

			// Load alias file for asset ID resolution (non-fatal if missing)
			af, _ := aliasfile.Load()
			ctx = WithAliasFile(ctx, af)

			cmd.SetContext(ctx)

			// Warn about stale stored credentials. Auth and config commands
			// are skipped, as is status, which reports credential age itself.
			skipCommands := map[string]bool{
				"authenticate": true,
				"login":        true,
				"revoke":       true,
				"logout":       true,
				"config":       true,
				"status":       true,
				"whoami":       true,
			}
			if !skipCommands[cmd.Name()] && (cmd.Parent() == nil || !skipCommands[cmd.Parent().Name()]) {
				checkCredentialAgeAndWarn(ctx, opts.quiet)
			}

			// Suppress Cobra's default usage output when emitting structured errors.
			// We handle error printing ourselves to keep machine-readable output clean.
			if effectiveErrorFormat(ctx) != "text" {
				cmd.SilenceUsage = true
			}

			return nil
		},
	}

	// Set version info
	rootCmd.Version = app.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("earthengine %s (commit: %s, built: %s)\n", app.Version, app.Commit, app.BuildTime))

	// Global flags
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format: text|json|ndjson|jsonl|table|yaml")
	// Alias --format to --output for discoverability
	rootCmd.PersistentFlags().String("format", "text", "Alias for --output")
	_ = rootCmd.PersistentFlags().MarkHidden("format")
	// Shorthand: --json is equivalent to -o json
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Shorthand for --output json")
	_ = rootCmd.PersistentFlags().MarkHidden("json")
	rootCmd.PersistentFlags().StringVarP(&queryFlag, "query", "q", "", "JQ expression to filter JSON output")
	rootCmd.PersistentFlags().StringVar(&jqFlag, "jq", "", "Alias for --query")
	_ = rootCmd.PersistentFlags().MarkHidden("jq")
	rootCmd.PersistentFlags().StringVar(&fieldsFlag, "fields", "", "Project fields (comma-separated paths, use key=path to rename)")
	rootCmd.PersistentFlags().StringVar(&pickFlag, "pick", "", "Alias for --fields")
	_ = rootCmd.PersistentFlags().MarkHidden("pick")
	rootCmd.PersistentFlags().StringVar(&jsonPathFlag, "jsonpath", "", "Extract a value using JSONPath (e.g. $.tasks[0].id)")
	rootCmd.PersistentFlags().StringVar(&queryFile, "query-file", "", "Read JQ expression from file ('-' for stdin)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug output (shows HTTP requests/responses)")
	rootCmd.PersistentFlags().StringVarP(&projectName, "project", "p", "", "Project profile or Cloud project to bill requests to")
	rootCmd.PersistentFlags().StringVar(&deadlineFlag, "deadline", "", "Per-request API deadline (e.g. 30s, 2m)")
	rootCmd.PersistentFlags().BoolVar(&profileFlag, "profile", false, "Request computation profiling; profile IDs print to stderr")
	rootCmd.PersistentFlags().StringVar(&errorFormat, "error-format", "auto", "Error output format (auto|text|json|yaml)")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&failEmpty, "fail-empty", false, "Exit with error when results are empty")
	rootCmd.PersistentFlags().BoolVar(&compactJSON, "compact-json", false, "Output compact JSON (single-line) instead of pretty JSON")
	rootCmd.PersistentFlags().BoolVar(&resultsOnlyFlag, "results-only", false, "Output only the results array when present (JSON output)")
	rootCmd.PersistentFlags().BoolVar(&dryRunFlag, "dry-run", false, "Print the request a mutating command would send, without sending it")

	// Machine-readable help (hidden; intercepted in App.Execute before arg validation)
	rootCmd.PersistentFlags().Bool("help-json", false, "Output command help as JSON")
	_ = rootCmd.PersistentFlags().MarkHidden("help-json")

	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().BoolVar(&yesFlag, "no-input", false, "Disable interactive prompts (alias for --yes)")
	_ = rootCmd.PersistentFlags().MarkHidden("no-input")
	rootCmd.PersistentFlags().IntVar(&limitFlag, "limit", 0, "Limit number of results (0 = no limit)")
	rootCmd.PersistentFlags().StringVar(&sortBy, "sort-by", "", "Sort results by field")
	rootCmd.PersistentFlags().BoolVar(&descFlag, "desc", false, "Sort in descending order")

	// Flag aliases for scripting ergonomics
	flagAlias(rootCmd.PersistentFlags(), "output", "out")
	flagAlias(rootCmd.PersistentFlags(), "quiet", "quiet-output")
	flagAlias(rootCmd.PersistentFlags(), "results-only", "items-only")
	flagAlias(rootCmd.PersistentFlags(), "query-file", "qf")
	flagAlias(rootCmd.PersistentFlags(), "compact-json", "cj")

	// Register subcommands
	rootCmd.AddCommand(newAuthenticateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRevokeCmd())
	rootCmd.AddCommand(newAssetCmd())
	rootCmd.AddCommand(newTaskCmd())
	rootCmd.AddCommand(newMapCmd())
	rootCmd.AddCommand(newThumbCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newTableCmd())
	rootCmd.AddCommand(newAlgorithmsCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newAliasCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMCPCmd(app))
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newVersionCmd(app))

	// Top-level convenience aliases (desire paths)
	addConvenienceAliases(rootCmd)

	return rootCmd
}

// addConvenienceAliases wires short top-level commands onto their
// canonical implementations.
func addConvenienceAliases(rootCmd *cobra.Command) {
	login := newAuthenticateCmd()
	login.Use = "login"
	login.Aliases = nil
	login.Short = "Authenticate with Earth Engine (alias for 'authenticate')"
	rootCmd.AddCommand(login)

	logout := newRevokeCmd()
	logout.Use = "logout"
	logout.Aliases = nil
	logout.Short = "Remove stored credentials (alias for 'revoke')"
	rootCmd.AddCommand(logout)

	whoami := newStatusCmd()
	whoami.Use = "whoami"
	whoami.Aliases = nil
	whoami.Short = "Show authentication status (alias for 'status')"
	rootCmd.AddCommand(whoami)

	ls := newAssetListCmd()
	ls.Use = "ls [asset-id]"
	ls.Aliases = nil
	ls.Short = "List assets (alias for 'asset ls')"
	rootCmd.AddCommand(ls)

	rm := newAssetDeleteCmd()
	rm.Use = "rm <asset-id>"
	rm.Aliases = nil
	rm.Short = "Delete an asset (alias for 'asset rm')"
	rootCmd.AddCommand(rm)

	cp := newAssetCopyCmd()
	cp.Use = "cp <source-id> <destination-id>"
	cp.Aliases = nil
	cp.Short = "Copy an asset (alias for 'asset cp')"
	rootCmd.AddCommand(cp)

	mv := newAssetMoveCmd()
	mv.Use = "mv <source-id> <destination-id>"
	mv.Aliases = nil
	mv.Short = "Move an asset (alias for 'asset mv')"
	rootCmd.AddCommand(mv)
}

// checkCredentialAgeAndWarn warns on stderr when stored credentials are
// older than the stale threshold. Non-blocking.
func checkCredentialAgeAndWarn(ctx context.Context, quiet bool) {
	if quiet {
		return
	}
	// Env var tokens carry no age metadata.
	if os.Getenv(auth.EnvVarName) != "" {
		return
	}

	creds, source, err := resolveCredentials(ctx)
	if err != nil || creds == nil || source == auth.SourceEnv {
		return
	}

	if !creds.CreatedAt.IsZero() && auth.IsStale(creds.CreatedAt) {
		age := auth.CredentialAgeDays(creds.CreatedAt)
		_, _ = fmt.Fprintf(stderrFromContext(ctx), "Warning: Your stored credentials are %d days old. Run 'earthengine authenticate' to refresh them.\n", age)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func parseColorMode(value string) ui.ColorMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "always":
		return ui.ColorAlways
	case "never":
		return ui.ColorNever
	default:
		return ui.ColorAuto
	}
}
