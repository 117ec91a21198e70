package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// commandDoc is the machine-readable help payload emitted for
// --help-json, which agents use to discover flags without scraping
// cobra's text help.
type commandDoc struct {
	Name        string     `json:"name"`
	Aliases     []string   `json:"aliases,omitempty"`
	Short       string     `json:"short"`
	Long        string     `json:"long,omitempty"`
	Usage       string     `json:"usage"`
	Example     string     `json:"example,omitempty"`
	Flags       []flagDoc  `json:"flags,omitempty"`
	Subcommands []childDoc `json:"subcommands,omitempty"`
}

type flagDoc struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Default   string `json:"default,omitempty"`
	Usage     string `json:"usage"`
}

type childDoc struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Short   string   `json:"short"`
}

// printHelpJSON writes a command's documentation as indented JSON.
func printHelpJSON(cmd *cobra.Command) error {
	doc := commandDoc{
		Name:        cmd.Name(),
		Aliases:     cmd.Aliases,
		Short:       cmd.Short,
		Long:        cmd.Long,
		Usage:       cmd.UseLine(),
		Example:     cmd.Example,
		Flags:       collectFlagDocs(cmd),
		Subcommands: collectChildDocs(cmd),
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// collectFlagDocs gathers local then inherited flags, deduplicated by
// name. The help flags themselves stay out of the payload.
func collectFlagDocs(cmd *cobra.Command) []flagDoc {
	var docs []flagDoc
	seen := make(map[string]bool)
	add := func(f *pflag.Flag) {
		if f.Name == "help" || f.Name == "help-json" || seen[f.Name] {
			return
		}
		seen[f.Name] = true
		docs = append(docs, flagDoc{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Type:      f.Value.Type(),
			Default:   f.DefValue,
			Usage:     f.Usage,
		})
	}

	cmd.LocalFlags().VisitAll(add)
	cmd.InheritedFlags().VisitAll(add)
	return docs
}

func collectChildDocs(cmd *cobra.Command) []childDoc {
	var docs []childDoc
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		docs = append(docs, childDoc{
			Name:    sub.Name(),
			Aliases: sub.Aliases,
			Short:   sub.Short,
		})
	}
	return docs
}

// helpJSONTarget scans args for --help-json and resolves which command's
// documentation was requested. The flag is stripped before resolving so
// "earthengine task list --help-json" finds the list command.
func helpJSONTarget(root *cobra.Command, args []string) (*cobra.Command, bool) {
	var filtered []string
	requested := false
	for _, a := range args {
		if a == "--help-json" {
			requested = true
			continue
		}
		if strings.HasPrefix(a, "--help-json=") {
			if truthyFlagValue(strings.TrimPrefix(a, "--help-json=")) {
				requested = true
			}
			continue
		}
		filtered = append(filtered, a)
	}
	if !requested {
		return nil, false
	}

	if len(filtered) == 0 {
		return root, true
	}
	cmd, _, err := root.Find(filtered)
	if err != nil || cmd == nil {
		return root, true
	}
	return cmd, true
}

func truthyFlagValue(v string) bool {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "true", "1", "yes", "y", "on":
		return true
	}
	return false
}
