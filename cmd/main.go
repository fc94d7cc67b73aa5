package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/territory/internal/adapters/http/api"
	"github.com/okian/territory/internal/adapters/repository/sqlite"
	"github.com/okian/territory/internal/adapters/source"
	service "github.com/okian/territory/internal/app"
	"github.com/okian/territory/internal/config"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// ErrUsage reports a bad command line.
var ErrUsage = errors.New("usage")

const usage = `usage: territory <command> [flags]

commands:
  baseline     assign every region to its nearest team and store week 0
  advance      apply contest feeds, one week (-week-index) or the rest of the season
  leaderboard  recompute and print the boards of a stored week
  markers      recompute and print the markers of a stored week
  serve        serve the read API over HTTP

run "territory <command> -h" for the flags of a command.
`

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			os.Stderr.WriteString("territory: " + err.Error() + "\n")
		}
		stop()
		os.Exit(1)
	}
}

// run executes one command. Summaries go to stdout, logs to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		io.WriteString(stderr, usage)
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	command, args := args[0], args[1:]
	if command == "help" || command == "-h" || command == "--help" {
		io.WriteString(stdout, usage)
		return nil
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(stderr)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	season := fs.Int("season", cfg.Season, "Season year (e.g. 2025)")
	dryRun := fs.Bool("dry-run", false, "Compute everything without writing to the database")
	asJSON := fs.Bool("json", false, "Print the result as JSON")

	var (
		weekIndex    *int
		maxWeekIndex *int
		limit        *int
		verbose      *bool
		addr         *string
	)
	switch command {
	case "baseline":
	case "advance":
		weekIndex = fs.Int("week-index", 0, "Advance only this chronological week index (0 walks the rest of the season)")
		maxWeekIndex = fs.Int("max-week-index", 0, "Optional upper bound on the week index when walking the season")
		verbose = fs.Bool("verbose", false, "Print per-contest transfer details")
	case "leaderboard":
		weekIndex = fs.Int("week-index", -1, "Stored week index to compute (defaults to the latest)")
		limit = fs.Int("limit", 0, "Entries to print per board (defaults to top_entries)")
	case "markers":
		weekIndex = fs.Int("week-index", -1, "Stored week index to compute (defaults to the latest)")
	case "serve":
		addr = fs.String("addr", cfg.Addr, "HTTP listen address")
	default:
		io.WriteString(stderr, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, command)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if command != "serve" && *season <= 0 {
		return fmt.Errorf("%w: -season is required (or set TERRITORY_SEASON)", ErrUsage)
	}

	src, svc, err := newService(ctx, cfg, log, *dryRun)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error(ctx, "close store", logger.Error(err))
		}
	}()

	out := newReporter(stdout, *asJSON)
	switch command {
	case "baseline":
		rep, err := svc.BuildBaseline(ctx, *season)
		if err != nil {
			return err
		}
		return out.baseline(rep)

	case "advance":
		if *weekIndex > 0 {
			week, err := resolveWeek(ctx, src, *season, *weekIndex)
			if err != nil {
				return err
			}
			rep, err := svc.AdvanceWeek(ctx, week)
			if err != nil {
				return err
			}
			return out.week(rep, *verbose)
		}
		rep, err := svc.AdvanceSeason(ctx, *season, *maxWeekIndex)
		if err != nil {
			// weeks committed before the failure are still reported
			_ = out.season(rep, *verbose)
			return err
		}
		return out.season(rep, *verbose)

	case "leaderboard":
		idx, err := storedWeek(ctx, svc, *season, *weekIndex)
		if err != nil {
			return err
		}
		lb, err := svc.ComputeLeaderboards(ctx, *season, idx)
		if err != nil {
			return err
		}
		n := *limit
		if n <= 0 {
			n = cfg.TopEntries
		}
		return out.leaderboard(lb.Limit(n), svc.DryRun())

	case "markers":
		idx, err := storedWeek(ctx, svc, *season, *weekIndex)
		if err != nil {
			return err
		}
		markers, err := svc.ComputeMarkers(ctx, *season, idx)
		if err != nil {
			return err
		}
		return out.markers(markers, svc.DryRun())

	default:
		return serve(ctx, log, svc, *addr, cfg.MaxLeaderboardLimit)
	}
}

// newService opens the store and file sources named by cfg.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger, dryRun bool) (*source.Files, *service.Service, error) {
	outlying, err := cfg.Outlying()
	if err != nil {
		return nil, nil, err
	}
	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	src := source.New(
		source.WithRegionsPath(cfg.RegionsPath),
		source.WithStatsPath(cfg.RegionStatsPath),
		source.WithTeamsPath(cfg.TeamsPath),
		source.WithContestsDir(cfg.ContestsDir),
		source.WithProperties(source.Properties{
			ID:         cfg.RegionIDProperty,
			Name:       cfg.NameProperty,
			Area:       cfg.AreaProperty,
			Population: cfg.PopulationProperty,
			Cluster:    cfg.ClusterProperty,
		}),
		source.WithLogger(log.Named("source")),
	)
	svc := service.New(
		service.WithStore(store),
		service.WithSource(src),
		service.WithTopEntries(cfg.TopEntries),
		service.WithPartitioner(centroid.NewPartitioner(cfg.PrimaryCluster, outlying, cfg.ExcludedClusters)),
		service.WithOnMissingWeek(cfg.OnMissingWeek),
		service.WithDryRun(dryRun),
		service.WithLogger(log.Named("service")),
	)
	return src, svc, nil
}

// resolveWeek finds a week index on the season timeline, falling back to a
// regular-season week of the same number when the timeline does not list it.
func resolveWeek(ctx context.Context, src *source.Files, season, weekIndex int) (model.WeekRef, error) {
	timeline, err := src.Timeline(ctx, season)
	if err != nil && !errors.Is(err, model.ErrMissingData) {
		return model.WeekRef{}, err
	}
	for _, w := range timeline {
		if w.WeekIndex == weekIndex {
			return w, nil
		}
	}
	return model.WeekRef{Season: season, WeekIndex: weekIndex, Week: weekIndex, SeasonType: model.SeasonTypeRegular}, nil
}

// storedWeek returns weekIndex, or the latest stored week of season when it
// is negative.
func storedWeek(ctx context.Context, svc *service.Service, season, weekIndex int) (int, error) {
	if weekIndex >= 0 {
		return weekIndex, nil
	}
	weeks, err := svc.Weeks(ctx, season)
	if err != nil {
		return 0, err
	}
	if len(weeks) == 0 {
		return 0, fmt.Errorf("%w: no stored weeks for season %d", model.ErrMissingData, season)
	}
	return weeks[len(weeks)-1].Week.WeekIndex, nil
}

func serve(ctx context.Context, log logger.Logger, svc *service.Service, addr string, maxLimit int) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(svc, maxLimit).Routes(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}
