package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/cmdutil"
	"github.com/verdantlabs/earthengine-cli/internal/config"
	"github.com/verdantlabs/earthengine-cli/internal/debug"
	"github.com/verdantlabs/earthengine-cli/internal/iocontext"
	"github.com/verdantlabs/earthengine-cli/internal/output"
	"github.com/verdantlabs/earthengine-cli/internal/ui"
)

type globalFlagInput struct {
	projectName     string
	queryFlag       string
	jqFlag          string
	fieldsFlag      string
	pickFlag        string
	jsonPathFlag    string
	quietFlag       bool
	failEmptyFlag   bool
	compactJSON     bool
	deadlineFlag    string
	profileFlag     bool
	dryRunFlag      bool
	yesFlag         bool
	limitFlag       int
	sortBy          string
	descFlag        bool
	resultsOnlyFlag bool
	errorFormat     string
}

type globalOptions struct {
	project         string
	format          output.Format
	query           string
	queryNormalized bool
	fieldsRaw       string
	jsonPathRaw     string
	quiet           bool
	failEmpty       bool
	compactJSON     bool
	deadline        time.Duration
	profile         bool
	dryRun          bool
	yes             bool
	limit           int
	sortBy          string
	desc            bool
	resultsOnly     bool
	errorFormat     string

	queryFlagSet     bool
	jqFlagSet        bool
	queryFileFlagSet bool
	fieldsFlagSet    bool
	pickFlagSet      bool
	outputFlagSet    bool
	formatFlagSet    bool
	jsonFlagSet      bool
}

func parseGlobalOptions(cmd *cobra.Command, cfg *config.Config, stdout io.Writer, flags globalFlagInput) (globalOptions, error) {
	opts := globalOptions{
		project:     flags.projectName,
		quiet:       flags.quietFlag,
		failEmpty:   flags.failEmptyFlag,
		compactJSON: flags.compactJSON,
		profile:     flags.profileFlag,
		dryRun:      flags.dryRunFlag,
		yes:         flags.yesFlag,
		limit:       flags.limitFlag,
		sortBy:      flags.sortBy,
		desc:        flags.descFlag,
		resultsOnly: flags.resultsOnlyFlag,
		errorFormat: flags.errorFormat,

		queryFlagSet:  strings.TrimSpace(flags.queryFlag) != "",
		jqFlagSet:     strings.TrimSpace(flags.jqFlag) != "",
		fieldsFlagSet: strings.TrimSpace(flags.fieldsFlag) != "",
		pickFlagSet:   strings.TrimSpace(flags.pickFlag) != "",
		outputFlagSet: commandFlagChanged(cmd, "output") || commandFlagChanged(cmd, "out"),
		formatFlagSet: commandFlagChanged(cmd, "format"),
		jsonFlagSet:   commandFlagChanged(cmd, "json"),
	}

	if opts.project == "" {
		opts.project = os.Getenv("EARTHENGINE_PROJECT")
	}

	if strings.TrimSpace(flags.deadlineFlag) != "" {
		d, err := time.ParseDuration(flags.deadlineFlag)
		if err != nil || d <= 0 {
			return globalOptions{}, fmt.Errorf("invalid --deadline %q (expected a positive duration like 30s)", flags.deadlineFlag)
		}
		opts.deadline = d
	}

	formatStr, _ := cmd.Flags().GetString("output")
	jsonFlag, _ := cmd.Flags().GetBool("json")
	if jsonFlag {
		formatStr = "json"
	} else if opts.formatFlagSet {
		formatStr, _ = cmd.Flags().GetString("format")
	} else if !opts.outputFlagSet && strings.TrimSpace(os.Getenv("EARTHENGINE_OUTPUT")) != "" {
		formatStr = os.Getenv("EARTHENGINE_OUTPUT")
	} else if !opts.outputFlagSet && cfg.GetOutput() != "" {
		formatStr = cfg.GetOutput()
	} else if !opts.outputFlagSet && !isTerminal(stdout) {
		formatStr = string(output.FormatJSON)
	}

	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return globalOptions{}, err
	}
	opts.format = format

	if !cmd.Flags().Changed("quiet") && !isTerminal(stdout) {
		switch opts.format {
		case output.FormatJSON, output.FormatNDJSON, output.FormatYAML:
			opts.quiet = true
		}
	}

	opts.query = flags.queryFlag
	if opts.query == "" {
		opts.query = flags.jqFlag
	}

	queryFileFlag, _ := cmd.Flags().GetString("query-file")
	opts.queryFileFlagSet = strings.TrimSpace(queryFileFlag) != ""
	if opts.queryFileFlagSet {
		loaded, err := cmdutil.ReadInputSource(queryFileFlag)
		if err != nil {
			return globalOptions{}, err
		}
		opts.query = loaded
	}

	opts.query, opts.queryNormalized = output.NormalizeQuery(opts.query)

	opts.fieldsRaw = strings.TrimSpace(flags.fieldsFlag)
	if opts.fieldsRaw == "" {
		opts.fieldsRaw = strings.TrimSpace(flags.pickFlag)
	}
	opts.jsonPathRaw = strings.TrimSpace(flags.jsonPathFlag)

	return opts, nil
}

func validateGlobalOptions(opts *globalOptions) error {
	if opts.jqFlagSet && opts.queryFlagSet {
		return errOnlyOne("--query", "--jq")
	}
	if opts.queryFileFlagSet && (opts.jqFlagSet || opts.queryFlagSet) {
		return errOnlyOne("--query/--jq", "--query-file")
	}
	if opts.fieldsFlagSet && opts.pickFlagSet {
		return errOnlyOne("--fields", "--pick")
	}
	if opts.fieldsRaw != "" {
		if err := output.ValidateFields(opts.fieldsRaw); err != nil {
			return err
		}
	}
	if opts.query != "" && (opts.fieldsRaw != "" || opts.jsonPathRaw != "") {
		return errOnlyOne("--query/--jq/--query-file", "--fields/--pick, or --jsonpath")
	}
	if opts.fieldsRaw != "" && opts.jsonPathRaw != "" {
		return errOnlyOne("--fields/--pick", "--jsonpath")
	}
	if opts.limit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	if err := validateErrorFormat(opts.errorFormat); err != nil {
		return err
	}
	return nil
}

func buildRootContext(ctx context.Context, app *App, cfg *config.Config, debugMode bool, opts globalOptions) context.Context {
	ctx = iocontext.WithIO(ctx, app.Stdout, app.Stderr)
	ctx = output.WithFormat(ctx, opts.format)
	ctx = output.WithQuery(ctx, opts.query)
	ctx = debug.WithDebug(ctx, debugMode)
	ctx = WithProject(ctx, opts.project)
	ctx = WithConfig(ctx, cfg)
	ctx = WithDeadline(ctx, opts.deadline)
	ctx = WithProfiling(ctx, opts.profile)
	ctx = WithDryRun(ctx, opts.dryRun)

	ctx = output.WithYes(ctx, opts.yes)
	ctx = output.WithLimit(ctx, opts.limit)
	ctx = output.WithSort(ctx, opts.sortBy, opts.desc)
	ctx = output.WithQuiet(ctx, opts.quiet)
	ctx = output.WithFields(ctx, opts.fieldsRaw)
	ctx = output.WithJSONPath(ctx, opts.jsonPathRaw)
	ctx = output.WithFailEmpty(ctx, opts.failEmpty)
	ctx = output.WithResultsOnly(ctx, opts.resultsOnly)
	ctx = output.WithCompactJSON(ctx, opts.compactJSON)
	ctx = WithErrorFormat(ctx, opts.errorFormat)
	ctx = ui.WithUI(ctx, ui.New(parseColorMode(cfg.GetColor())))
	return ctx
}

func errOnlyOne(left, right string) error {
	return fmt.Errorf("use only one of %s or %s", left, right)
}

func commandFlagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}

	for current := cmd; current != nil; current = current.Parent() {
		if flag := current.Flags().Lookup(name); flag != nil && flag.Changed {
			return true
		}
		if flag := current.PersistentFlags().Lookup(name); flag != nil && flag.Changed {
			return true
		}
	}
	return false
}
