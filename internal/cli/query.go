package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grayfold/archivist/internal/store"
)

// AnnotationsOptions holds flags for the annotations command.
type AnnotationsOptions struct {
	*RootOptions
	Symbol string
	From   string
	To     string
	Status string
	Type   string
	Tags   []string
}

// NewAnnotationsCommand creates the annotations query command.
func NewAnnotationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnnotationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "Query annotations over a date range",
		Long: `List annotations for a symbol over a session date range, ordered by
(session date, creation time). The tag filter uses OR semantics: an
annotation matches if it carries any of the requested tags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotations(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "instrument symbol (required)")
	cmd.Flags().StringVar(&opts.From, "from", "", "start session date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end session date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.Status, "status", "active", "status filter (active|superseded|all)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "annotation type filter")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "tag filter, OR semantics (repeatable)")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runAnnotations(opts *AnnotationsOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	annotations, err := st.QueryAnnotations(cmd.Context(), store.AnnotationQuery{
		Symbol: opts.Symbol,
		From:   opts.From,
		To:     opts.To,
		Status: opts.Status,
		Type:   opts.Type,
		Tags:   opts.Tags,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query annotations", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.JSON(annotations)
	}

	if len(annotations) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No annotations found.")
		return nil
	}
	for _, a := range annotations {
		line := fmt.Sprintf("#%d %s [%s] (%s) %s", a.ID, a.Day, a.Type, a.Status, a.Content)
		if len(a.Tags) > 0 {
			line += " {" + strings.Join(a.Tags, ", ") + "}"
		}
		if a.SupersedesID != nil {
			line += fmt.Sprintf(" supersedes #%d", *a.SupersedesID)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
