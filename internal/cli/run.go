package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"sentinel/internal/modkit"
	"sentinel/internal/modkit/repokit"
	"sentinel/internal/platform/config"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"
	"sentinel/internal/platform/store"
	ptime "sentinel/internal/platform/time"
	"sentinel/internal/services/tracker/domain"
	trackermod "sentinel/internal/services/tracker/module"

	"github.com/spf13/cobra"
)

// dateLayout is the --since/--until format
const dateLayout = "2006-01-02"

// RunOptions holds the flags of the run command
type RunOptions struct {
	Since    string
	Until    string
	Months   int
	Trackers []string
	Remote   bool
	DryRun   bool
	Timeout  time.Duration
}

// seams so tests can run without live backends
var (
	openStore = func(ctx context.Context, cfg store.Config) (*store.Store, error) {
		return store.Open(ctx, cfg, store.WithLogger(*logger.Get()))
	}
	now = time.Now
)

// NewCmdRun creates the run command
func NewCmdRun() *cobra.Command {
	o := &RunOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Retrieve and store contributions for a date window",
		Example: `  sentinel-updater run --since 2015-01-01 --until 2015-03-31
  sentinel-updater run --months 2 --tracker maillist --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.Since, "since", "", "first day of the window (YYYY-MM-DD)")
	f.StringVar(&o.Until, "until", "", "last day of the window (YYYY-MM-DD), included, defaults to now")
	f.IntVar(&o.Months, "months", 0, "window of N calendar months ending at --until, instead of --since")
	f.StringSliceVar(&o.Trackers, "tracker", nil, "tracker to run (github, maillist), repeatable; default all")
	f.BoolVar(&o.Remote, "remote", false, "write to SERVICE_PGSQL_REMOTE_DBURL instead of SERVICE_PGSQL_DBURL")
	f.BoolVar(&o.DryRun, "dry-run", false, "retrieve and classify without writing to the database")
	f.DurationVar(&o.Timeout, "timeout", 0, "per tracker deadline, overrides CORE_TRACKER_RUN_TIMEOUT")
	cmd.MarkFlagsMutuallyExclusive("since", "months")
	return cmd
}

// Window resolves the flags into a [since, until] window in UTC
func (o *RunOptions) Window(today time.Time) (since, until time.Time, err error) {
	end := today.UTC()
	until = end
	if o.Until != "" {
		if end, err = time.Parse(dateLayout, o.Until); err != nil {
			return time.Time{}, time.Time{}, perr.InvalidArgf("bad --until %q, want %s", o.Until, dateLayout)
		}
		// the named day is included up to its last instant
		until = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	switch {
	case o.Months < 0:
		return time.Time{}, time.Time{}, perr.InvalidArgf("--months must be positive")
	case o.Months > 0:
		since, _ = ptime.MonthsBack(end, o.Months)
	case o.Since == "":
		return time.Time{}, time.Time{}, perr.InvalidArgf("one of --since or --months is required")
	default:
		if since, err = time.Parse(dateLayout, o.Since); err != nil {
			return time.Time{}, time.Time{}, perr.InvalidArgf("bad --since %q, want %s", o.Since, dateLayout)
		}
	}
	if until.Before(since) {
		return time.Time{}, time.Time{}, perr.InvalidArgf("--until %s is before --since %s", until.Format(dateLayout), since.Format(dateLayout))
	}
	return since, until, nil
}

func runRun(parent context.Context, w io.Writer, o *RunOptions) error {
	ctx, stop := signalContext(parent)
	defer stop()

	since, until, err := o.Window(now())
	if err != nil {
		return err
	}

	cfg := config.New()
	deps := modkit.Deps{Cfg: cfg}
	if !o.DryRun {
		target := store.TargetLocal
		if o.Remote {
			target = store.TargetRemote
		}
		st, err := openStore(ctx, store.FromConfig(cfg, target))
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "open %s store", target)
		}
		defer func() {
			if cerr := st.Close(context.Background()); cerr != nil {
				logger.Get().Error().Err(cerr).Msg("failed to close store")
			}
		}()
		if err := repokit.Guard(ctx, st); err != nil {
			return err
		}
		deps = modkit.FromStore(cfg, st)
	}

	tm, err := trackermod.New(ctx, deps, modkit.WithDryRun(o.DryRun), modkit.WithTimeout(o.Timeout))
	if err != nil {
		return err
	}
	adapters, err := tm.Adapters(o.Trackers...)
	if err != nil {
		return err
	}

	logger.C(ctx).Info().
		Time("since", since).
		Time("until", until).
		Strs("trackers", names(adapters)).
		Bool("dry_run", o.DryRun).
		Bool("remote", o.Remote).
		Msg("run starting")

	results, runErr := tm.Runner().RunAll(ctx, adapters, since, until)
	printResults(w, results)
	return runErr
}

func names(as []domain.Adapter) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, string(a.Name()))
	}
	return out
}

// printResults writes one row per finished tracker
func printResults(w io.Writer, results []domain.Result) {
	if len(results) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TRACKER\tTOTAL\tACCEPTED\tSKIPPED\tRETRIEVE\tWRITE")
	for _, r := range results {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
			r.Tracker, r.Total, r.Accepted, r.Skipped,
			r.RetrieveDur.Round(time.Millisecond), r.WriteDur.Round(time.Millisecond))
	}
	_ = tw.Flush()
}
