package app

import (
	"fmt"
	"sort"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/canbridge/cmd/cbr-agent/app/options"
	"github.com/autopeer-io/canbridge/internal/agent/press"
	"github.com/autopeer-io/canbridge/pkg/app"
)

// mappingsCommand prints the button tables the agent would run with.
type mappingsCommand struct {
	app *app.App
}

func (m *mappingsCommand) command() *cobra.Command {
	return &cobra.Command{
		Use:   "mappings",
		Short: "Print the effective MMI and steering wheel button mappings",
		Long: `Print the command code to action tables after applying the --config file.
Entries set to "none" in the file are not listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options.NewAgentOptions()
			if err := m.app.Load(opts); err != nil {
				return err
			}
			table, err := mappingsTable(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func mappingsTable(opts *options.AgentOptions) (*uitable.Table, error) {
	mmi, err := opts.MMIOptions.Mapping()
	if err != nil {
		return nil, err
	}
	mfsw, err := opts.MFSWOptions.Mapping()
	if err != nil {
		return nil, err
	}

	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("MODULE", "ENABLED", "TIER", "CODE", "ACTION")
	addMapping(table, "mmi", opts.MMIOptions.Enabled, mmi)
	addMapping(table, "mfsw", opts.MFSWOptions.Enabled, mfsw)
	return table, nil
}

func addMapping(table *uitable.Table, module string, enabled bool, m press.Mapping) {
	for _, t := range press.Tiers {
		entries := m.Table(t)
		codes := make([]press.Code, 0, len(entries))
		for c := range entries {
			codes = append(codes, c)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		for _, c := range codes {
			table.AddRow(module, enabled, t, c, entries[c])
		}
	}
}
