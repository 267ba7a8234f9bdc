package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/grayfold/archivist/internal/ingest"
	"github.com/grayfold/archivist/internal/market"
	"github.com/grayfold/archivist/internal/session"
	"github.com/grayfold/archivist/internal/source"
	"github.com/grayfold/archivist/internal/store"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Symbol   string
	Source   string
	Profiles string
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <csv-file>",
		Short: "Ingest a CSV of market bars",
		Long: `Ingest a CSV export of OHLCV bars into the archive.

Each bar is assigned to a trade day under the session calendar (sessions
cut over at 3 PM local; 2-3 PM is a daily halt). Re-ingesting the same
file is idempotent: identical bars are skipped, revised bars are reported
as conflicts and left unchanged. A Saturday timestamp aborts the whole
batch - nothing from the file is stored.

Example:
  archivist ingest --db market.db --symbol ES --source tradingview bars.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "instrument symbol (required)")
	cmd.Flags().StringVar(&opts.Source, "source", "tradingview", "data source / profile name")
	cmd.Flags().StringVar(&opts.Profiles, "profiles", "", "path to YAML source profile registry")
	_ = cmd.MarkFlagRequired("symbol")

	return cmd
}

func runIngest(opts *IngestOptions, csvPath string, cmd *cobra.Command) error {
	zone, err := resolveZone(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve zone", err)
	}

	registry := source.NewRegistry()
	if opts.Profiles != "" {
		if err := registry.LoadFile(opts.Profiles); err != nil {
			return WrapExitError(ExitCommandError, "failed to load profiles", err)
		}
	}
	profile, err := registry.Lookup(opts.Source)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown source", err)
	}

	slog.Debug("reading csv", "path", csvPath, "profile", profile.Name)
	records, err := source.ReadCSV(csvPath, profile, zone)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read records", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	engine := ingest.New(st, zone, nil)
	slog.Info("ingesting batch", "records", len(records), "symbol", opts.Symbol, "source", opts.Source)
	report, err := engine.IngestBatch(cmd.Context(), ingest.Batch{
		Records: records,
		Symbol:  opts.Symbol,
		Source:  opts.Source,
		File:    csvPath,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "batch aborted", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.JSON(report)
	}
	renderReport(cmd.OutOrStdout(), report)
	return nil
}

// renderReport writes the human-readable ingestion report.
func renderReport(w io.Writer, report *market.Report) {
	fmt.Fprintf(w, "Batch %s (%s from %s)\n", report.BatchID, report.Symbol, report.Source)
	fmt.Fprintf(w, "  inserted:  %d\n", report.Inserted)
	fmt.Fprintf(w, "  skipped:   %d\n", report.Skipped)
	fmt.Fprintf(w, "  conflicts: %d\n", report.Conflicts)
	for _, c := range report.ConflictDetails {
		fmt.Fprintf(w, "  conflict at %d (%s): stored O=%g H=%g L=%g C=%g V=%g, incoming O=%g H=%g L=%g C=%g V=%g\n",
			c.Timestamp, c.Reason,
			c.Existing.Open, c.Existing.High, c.Existing.Low, c.Existing.Close, c.Existing.Volume,
			c.Incoming.Open, c.Incoming.High, c.Incoming.Low, c.Incoming.Close, c.Incoming.Volume)
	}
}

// resolveZone loads the reference zone from the --zone flag, defaulting to
// the exchange zone.
func resolveZone(opts *RootOptions) (*time.Location, error) {
	if opts.Zone == "" {
		return session.DefaultZone()
	}
	zone, err := time.LoadLocation(opts.Zone)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", opts.Zone, err)
	}
	return zone, nil
}
