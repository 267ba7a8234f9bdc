package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/grayfold/archivist/internal/store"
)

// SessionOptions holds flags for the session command.
type SessionOptions struct {
	*RootOptions
	Symbol string
	Day    string
	Source string
}

// NewSessionCommand creates the session lookup command.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "session",
		Short:         "Look up a trade day record",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "instrument symbol (required)")
	cmd.Flags().StringVar(&opts.Day, "day", "", "session date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.Source, "source", "tradingview", "data source")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("day")

	return cmd
}

func runSession(opts *SessionOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	sess, err := st.GetSession(cmd.Context(), opts.Symbol, opts.Day, opts.Source)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query session", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if sess == nil {
		if formatter.IsJSON() {
			return formatter.JSON(nil)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No session found.")
		return nil
	}
	if formatter.IsJSON() {
		return formatter.JSON(sess)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "#%d %s %s (%s)\n", sess.ID, sess.Symbol, sess.Day, sess.Source)
	return nil
}
