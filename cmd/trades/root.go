package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/trade-paginator/pkg/logging"
	"github.com/Sternrassler/trade-paginator/pkg/metrics"
	"github.com/Sternrassler/trade-paginator/pkg/pagination"
	"github.com/Sternrassler/trade-paginator/pkg/trades"
	"github.com/Sternrassler/trade-paginator/pkg/transport"
)

const (
	// DefaultURL is the public BTC trades endpoint.
	DefaultURL = "https://www.mercadobitcoin.net/api/BTC/trades/"

	// DefaultStartTID is the first cursor requested when none is given.
	DefaultStartTID = 770000

	envPrefix = "TRADES"
)

// options is the resolved command configuration.
type options struct {
	URL         string
	StartTID    uint64
	MaxPages    int
	Output      trades.Format
	MetricsAddr string

	Logging    logging.Config
	Pagination pagination.Config
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	defaults := pagination.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Page through a trades API by tid cursor",
		Long: `trades requests <url>?tid=<cursor>, prints every non-empty page and
continues from the last tid of that page until the API returns an empty page.

Every flag can also be set through a TRADES_ prefixed environment variable,
for example TRADES_START_TID=8191000 or TRADES_RETRY_DELAY=2s.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(v, stderr)
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts, stdout)
		},
	}

	flags := cmd.Flags()
	flags.String("url", DefaultURL, "base URL of the trades endpoint")
	flags.Uint64("start-tid", DefaultStartTID, "tid cursor of the first request")
	flags.Int("max-retries", defaults.MaxRetries, "attempts per page before giving up")
	flags.Duration("retry-delay", defaults.RetryDelay, "wait between attempts for the same page")
	flags.Duration("request-timeout", defaults.RequestTimeout, "timeout of a single request")
	flags.Duration("throttle", defaults.Throttle, "wait between consecutive pages")
	flags.Int("max-pages", 0, "stop after this many pages (0 = until the API is exhausted)")
	flags.String("output", string(trades.FormatTable), "page format: table, markdown, json")
	flags.String("log-level", string(logging.LevelInfo), "log level: debug, info, warn, error, disabled")
	flags.Bool("pretty", false, "human-readable logs instead of JSON")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	return cmd
}

// loadOptions resolves flags, environment and defaults into options.
func loadOptions(v *viper.Viper, logOutput io.Writer) (options, error) {
	level := strings.ToLower(v.GetString("log-level"))
	if !logging.ValidLevel(level) {
		return options{}, fmt.Errorf("invalid log level: %s", v.GetString("log-level"))
	}

	format, err := trades.ParseFormat(v.GetString("output"))
	if err != nil {
		return options{}, err
	}

	url := strings.TrimSpace(v.GetString("url"))
	if url == "" {
		return options{}, errors.New("url is required")
	}

	startTID, err := cast.ToUint64E(v.Get("start-tid"))
	if err != nil {
		return options{}, fmt.Errorf("invalid start-tid %q: %w", v.GetString("start-tid"), err)
	}

	maxPages, err := intOption(v, "max-pages")
	if err != nil {
		return options{}, err
	}
	if maxPages < 0 {
		return options{}, fmt.Errorf("max-pages must be >= 0 (got %d)", maxPages)
	}

	maxRetries, err := intOption(v, "max-retries")
	if err != nil {
		return options{}, err
	}

	var durations [3]time.Duration
	for i, key := range []string{"retry-delay", "request-timeout", "throttle"} {
		d, err := cast.ToDurationE(v.Get(key))
		if err != nil {
			return options{}, fmt.Errorf("invalid %s %q: %w", key, v.GetString(key), err)
		}
		durations[i] = d
	}

	pretty, err := cast.ToBoolE(v.Get("pretty"))
	if err != nil {
		return options{}, fmt.Errorf("invalid pretty %q: %w", v.GetString("pretty"), err)
	}

	opts := options{
		URL:         url,
		StartTID:    startTID,
		MaxPages:    maxPages,
		Output:      format,
		MetricsAddr: v.GetString("metrics-addr"),
		Logging: logging.Config{
			Level:  logging.LogLevel(level),
			Pretty: pretty,
			Output: logOutput,
		},
		Pagination: pagination.Config{
			MaxRetries:     maxRetries,
			RetryDelay:     durations[0],
			RequestTimeout: durations[1],
			Throttle:       durations[2],
		},
	}

	if err := opts.Pagination.Validate(); err != nil {
		return options{}, err
	}
	return opts, nil
}

// intOption reads key as an int, rejecting values viper would turn into 0.
func intOption(v *viper.Viper, key string) (int, error) {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v.GetString(key), err)
	}
	return n, nil
}

// run pages through the API and writes every page to out.
func run(ctx context.Context, opts options, out io.Writer) error {
	logging.Setup(opts.Logging)
	logger := logging.NewLogger("cli")

	if opts.MetricsAddr != "" {
		_, shutdown, err := serveMetrics(opts.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	p, err := pagination.New(transport.New(transport.DefaultConfig()), opts.Pagination)
	if err != nil {
		return err
	}

	formatter := trades.NewFormatter(opts.Output)
	var summary trades.Summary

	it := p.Paginate(ctx, opts.URL, opts.StartTID)
	defer it.Close()

	for it.Next() {
		page := it.Page()

		rendered, err := formatter.FormatPage(page)
		if err != nil {
			return fmt.Errorf("render page at tid %d: %w", it.Cursor(), err)
		}
		if _, err := fmt.Fprintln(out, rendered); err != nil {
			return fmt.Errorf("write page: %w", err)
		}

		if batch, err := trades.FromPage(page); err != nil {
			logger.Warn().Err(err).Uint64("cursor", it.Cursor()).Msg("Page left out of summary")
		} else {
			summary = summary.Merge(trades.Summarize(batch))
		}

		if opts.MaxPages > 0 && it.Stats().Pages >= opts.MaxPages {
			logger.Info().Int("max_pages", opts.MaxPages).Msg("Page limit reached")
			break
		}
	}

	logSummary(logger, it, summary)

	if err := it.Err(); err != nil {
		return fmt.Errorf("pagination from tid %d: %w", opts.StartTID, err)
	}
	return nil
}

func logSummary(logger zerolog.Logger, it *pagination.Iterator, summary trades.Summary) {
	stats := it.Stats()
	logger.Info().
		Str("run_id", it.RunID()).
		Int("pages", stats.Pages).
		Int("records", stats.Records).
		Int("buys", summary.Buys).
		Int("sells", summary.Sells).
		Uint64("first_tid", summary.FirstTID).
		Uint64("last_tid", summary.LastTID).
		Str("volume", summary.Volume.String()).
		Str("vwap", summary.VWAP().StringFixed(2)).
		Msg("Run summary")
}

// serveMetrics starts the Prometheus endpoint on /metrics and returns the
// bound address and a shutdown func.
func serveMetrics(addr string, logger zerolog.Logger) (net.Addr, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	return ln.Addr(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
