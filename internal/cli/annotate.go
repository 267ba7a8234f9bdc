package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/grayfold/archivist/internal/store"
)

// AnnotateOptions holds flags for the annotate command.
type AnnotateOptions struct {
	*RootOptions
	Symbol     string
	Day        string
	Type       string
	Tags       []string
	Source     string
	DaySource  string
	Supersedes int64
}

// NewAnnotateCommand creates the annotate command.
func NewAnnotateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnnotateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "annotate <content>",
		Short: "Attach a note to a trade day",
		Long: `Save an annotation against a trade day, creating the session row if it
does not exist yet.

With --supersedes, the referenced annotation is atomically marked
superseded; the save fails if that annotation is missing or already
superseded.

Example:
  archivist annotate --db market.db --symbol ES --day 2024-01-08 \
    --type observation --tag trend_day "strong open, held VWAP all day"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "instrument symbol (required)")
	cmd.Flags().StringVar(&opts.Day, "day", "", "session date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "observation", "annotation type")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&opts.Source, "source", "manual", "annotation provenance")
	cmd.Flags().StringVar(&opts.DaySource, "day-source", "tradingview", "session directory source tag")
	cmd.Flags().Int64Var(&opts.Supersedes, "supersedes", 0, "id of the annotation this one replaces")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("day")

	return cmd
}

func runAnnotate(opts *AnnotateOptions, content string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	draft := store.AnnotationDraft{
		Symbol:    opts.Symbol,
		Day:       opts.Day,
		DaySource: opts.DaySource,
		Type:      opts.Type,
		Content:   content,
		Tags:      opts.Tags,
		Source:    opts.Source,
		CreatedAt: time.Now().Unix(),
	}
	if opts.Supersedes != 0 {
		id := opts.Supersedes
		draft.SupersedesID = &id
	}

	id, err := st.SaveAnnotation(cmd.Context(), draft)
	if err != nil {
		if errors.Is(err, store.ErrSupersedeTarget) {
			return WrapExitError(ExitFailure, "supersede rejected", err)
		}
		return WrapExitError(ExitCommandError, "failed to save annotation", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.JSON(map[string]int64{"id": id})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved annotation %d\n", id)
	return nil
}
