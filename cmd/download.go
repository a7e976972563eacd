package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brogergvhs/storyd/internal/config"
	"github.com/brogergvhs/storyd/internal/discover"
	"github.com/brogergvhs/storyd/internal/extract"
	"github.com/brogergvhs/storyd/internal/fetcher"
	"github.com/brogergvhs/storyd/internal/sites"
	"github.com/brogergvhs/storyd/internal/story"
	"github.com/brogergvhs/storyd/internal/transport"
	"github.com/brogergvhs/storyd/internal/ui"
	"github.com/brogergvhs/storyd/internal/util"

	"github.com/spf13/cobra"
)

var (
	// story identity
	flagURL    string
	flagName   string
	flagSlug   string
	flagAuthor string

	// runtime
	flagOutput     string
	flagWorkers    int
	flagForce      bool
	flagRediscover bool
	flagDryRun     bool
	flagMinDelay   int
	flagMaxDelay   int

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download [url]",
		Short: "Discover, fetch and normalize all chapters of a story. Uses the defaults from the selected config, overwritten by CLI flags",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDownload,
	}

	// story identity
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "story index or first-chapter URL")
	downloadCmd.Flags().StringVar(&flagName, "name", "", "friendly story title; defaults to URL basename")
	downloadCmd.Flags().StringVar(&flagSlug, "slug", "", "directory-friendly slug; defaults to a slugified name")
	downloadCmd.Flags().StringVar(&flagAuthor, "author", "", "author name; defaults to site metadata when available")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "stories root folder")
	downloadCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel chapter fetches (pacing applies per worker)")
	downloadCmd.Flags().BoolVar(&flagForce, "force", false, "re-download chapters even if files already exist")
	downloadCmd.Flags().BoolVar(&flagRediscover, "rediscover", false, "rewrite the URL manifest even if one exists")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show the chapter URL list, don't download")
	downloadCmd.Flags().IntVar(&flagMinDelay, "min-delay", 0, "minimum politeness delay in ms between requests")
	downloadCmd.Flags().IntVar(&flagMaxDelay, "max-delay", 0, "maximum politeness delay in ms between requests")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Quiet:        flagQuiet,
		StoriesRoot:  flagOutput,
		FetchWorkers: flagWorkers,
		DefaultURL:   flagURL,
		Cookie:       flagCookie,
		CookieFile:   flagCookieFile,
		UserAgent:    flagUserAgent,
		MinDelayMs:   flagMinDelay,
		MaxDelayMs:   flagMaxDelay,
	})
	if err != nil {
		return err
	}

	seedURL := cfg.DefaultURL
	if len(args) == 1 {
		seedURL = args[0]
	}
	if seedURL == "" {
		return fmt.Errorf("missing url argument and no default_url in config")
	}

	logSvc := ui.NewLogger(cfg.Debug, cfg.Quiet)
	if usedPath != "" {
		logSvc.Debugf("Config file: %s\n", usedPath)
	}

	tc, err := transport.New(transport.Options{
		Timeout:     30 * time.Second,
		UserAgent:   cfg.UserAgent,
		Cookie:      cfg.Cookie,
		CookieFile:  cfg.CookieFile,
		MinDelay:    time.Duration(cfg.MinDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.MaxDelayMs) * time.Millisecond,
		Retries:     cfg.Retries,
		DebugLogger: logSvc,
	})
	if err != nil {
		return err
	}

	// an interrupt stops before the next chapter; finished files stay usable
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bundle := sites.Resolve(seedURL)
	if bundle.Name != "" {
		logSvc.Infof("Site: %s\n", bundle.FullName)
	}

	plan := story.NewPlan(seedURL, cfg.StoriesRoot, flagName, flagSlug, flagAuthor)
	plan.Site = bundle.Name

	urls, plan, err := discover.EnsureManifest(ctx, tc, bundle.Discoverer, plan, discover.EnsureOptions{
		Rediscover: flagRediscover,
		LockName:   flagName != "",
		LockSlug:   flagSlug != "",
		LockAuthor: flagAuthor != "",
	})
	if err != nil {
		return err
	}

	logSvc.Infof("Manifest: %d chapter URL(s)\n", len(urls))
	if len(urls) == 0 {
		return fmt.Errorf("no in-scope chapter links found at %s", seedURL)
	}

	if flagDryRun {
		fmt.Printf("Dry-run: %d chapters for %q (%s)\n\n", len(urls), plan.Name, plan.Slug)
		for i, u := range urls {
			fmt.Printf("%3d) %s\n", i+1, u)
		}
		return nil
	}

	start := time.Now()
	stats := &ui.Stats{}

	fetchSummary, fetchErr := runFetchPhase(ctx, tc, plan, urls, cfg, stats)
	if fetchErr != nil && !errors.Is(fetchErr, context.Canceled) {
		return fetchErr
	}

	var convErr error
	if fetchErr == nil {
		convErr = runTransformPhase(ctx, plan, bundle, len(urls), cfg, stats, logSvc)
		if convErr != nil && !errors.Is(convErr, context.Canceled) {
			return convErr
		}
	}

	fmt.Println()
	fmt.Println("Run Summary:")
	fmt.Printf("Fetched:   %d\n", fetchSummary.Fetched)
	fmt.Printf("Cached:    %d\n", fetchSummary.Skipped)
	fmt.Printf("Failed:    %d\n", fetchSummary.Failed)
	fmt.Printf("Converted: %d\n", stats.Converted.Load())
	fmt.Printf("Data:      %s\n", util.Human(stats.TotalBytes.Load()))
	fmt.Printf("Time:      %s\n", time.Since(start).Round(time.Second))

	if errors.Is(fetchErr, context.Canceled) || errors.Is(convErr, context.Canceled) {
		fmt.Println("\nInterrupted; re-run to resume.")
		return nil
	}

	if fetchSummary.Failed > 0 {
		fmt.Printf("\nSome chapters failed; see %s. Re-run to retry them.\n", plan.FetchLogPath())
	} else {
		fmt.Println("\nAll done.")
	}

	return nil
}

func runFetchPhase(ctx context.Context, tc *transport.Context, plan story.Plan, urls []string, cfg *config.Config, stats *ui.Stats) (fetcher.Summary, error) {
	var handle *ui.ProgressHandle
	var pm *ui.MPBProgressManager

	if !cfg.Quiet {
		pm = ui.NewProgressManager()
		handle = pm.Register("fetch", len(urls))
	}

	f := fetcher.New(tc)
	records, runErr := f.FetchAll(ctx, urls, plan, fetcher.Options{
		Force:   flagForce,
		Workers: cfg.FetchWorkers,
		OnRecord: func(rec fetcher.Record) {
			stats.TotalBytes.Add(rec.Bytes)
			if handle != nil {
				handle.Increment(rec.Bytes)
			}
		},
	})

	if handle != nil {
		handle.MarkDone()
		pm.Close()
	}

	summary := fetcher.Summarize(records)
	stats.Fetched.Add(int64(summary.Fetched))
	stats.Skipped.Add(int64(summary.Skipped))
	stats.Failed.Add(int64(summary.Failed))

	return summary, runErr
}

func runTransformPhase(ctx context.Context, plan story.Plan, bundle sites.Bundle, total int, cfg *config.Config, stats *ui.Stats, logSvc *ui.Logger) error {
	var handle *ui.ProgressHandle
	var pm *ui.MPBProgressManager

	if !cfg.Quiet {
		pm = ui.NewProgressManager()
		handle = pm.Register("convert", total)
	}

	results, runErr := extract.ConvertAll(ctx, plan, bundle.Extractor, total, func(res extract.Result) {
		if handle != nil {
			handle.Increment(0)
		}
		if res.Status == extract.ResultFailed {
			logSvc.Errorf("chapter %03d: %v\n", res.Index, res.Err)
		}
	})

	if handle != nil {
		handle.MarkDone()
		pm.Close()
	}

	for _, res := range results {
		if res.Status == extract.ResultConverted {
			stats.Converted.Add(1)
		}
	}

	return runErr
}
