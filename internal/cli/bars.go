package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/grayfold/archivist/internal/store"
)

// BarsOptions holds flags for the bars command.
type BarsOptions struct {
	*RootOptions
	Symbol      string
	Source      string
	Day         string
	From        string
	To          string
	IncludeHalt bool
	FromTS      int64
	ToTS        int64
}

// NewBarsCommand creates the bars query command.
func NewBarsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BarsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bars",
		Short: "Query stored bars",
		Long: `List bars for a symbol, for a single session date or a date range,
ordered by timestamp.

Halt-period bars belong to no session and are excluded by default.
--include-halt adds them; since they carry no symbol, bound them with
--from-ts/--to-ts epoch limits when the archive holds multiple symbols.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBars(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "instrument symbol (required)")
	cmd.Flags().StringVar(&opts.Source, "source", "tradingview", "data source")
	cmd.Flags().StringVar(&opts.Day, "day", "", "single session date YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.From, "from", "", "start session date YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.To, "to", "", "end session date YYYY-MM-DD")
	cmd.Flags().BoolVar(&opts.IncludeHalt, "include-halt", false, "include halt-period bars")
	cmd.Flags().Int64Var(&opts.FromTS, "from-ts", 0, "epoch lower bound for halt bars")
	cmd.Flags().Int64Var(&opts.ToTS, "to-ts", 0, "epoch upper bound for halt bars")
	_ = cmd.MarkFlagRequired("symbol")

	return cmd
}

func runBars(opts *BarsOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	bars, err := st.GetBars(cmd.Context(), store.BarQuery{
		Symbol:      opts.Symbol,
		Source:      opts.Source,
		Day:         opts.Day,
		From:        opts.From,
		To:          opts.To,
		IncludeHalt: opts.IncludeHalt,
		FromTS:      opts.FromTS,
		ToTS:        opts.ToTS,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query bars", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.JSON(bars)
	}

	if len(bars) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No bars found.")
		return nil
	}
	for _, b := range bars {
		day := b.Day
		if b.Halt {
			day = "halt"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s O=%g H=%g L=%g C=%g V=%g\n",
			b.Timestamp, day, b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return nil
}
