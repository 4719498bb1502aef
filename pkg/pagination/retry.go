package pagination

import (
	"context"
	"fmt"

	"github.com/Sternrassler/trade-paginator/pkg/transport"
	"github.com/rs/zerolog"
)

// FetchPageWithRetry fetches the page at cursor, retrying failed requests.
//
// Attempts are numbered from 1. A failure on attempt MaxRetries is final and
// returned as a *PaginationError, so the transport is called at most
// MaxRetries times with RetryDelay between consecutive calls. A body that
// is not a page fails immediately with ErrMalformedPage.
func (p *Paginator) FetchPageWithRetry(ctx context.Context, baseURL string, cursor uint64) (Page, error) {
	return p.fetchPageWithRetry(ctx, PageRequest{BaseURL: baseURL, Cursor: cursor}, p.logger)
}

func (p *Paginator) fetchPageWithRetry(ctx context.Context, req PageRequest, logger zerolog.Logger) (Page, error) {
	url := req.URL()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}

		body, err := p.transport.PerformRequest(ctx, url, p.config.RequestTimeout)
		if err == nil {
			page, decodeErr := decodePage(body)
			if decodeErr != nil {
				logger.Error().
					Err(decodeErr).
					Str("url", url).
					Int("attempt", attempt).
					Msg("Page body could not be decoded")
				return nil, fmt.Errorf("fetch %s: %w", url, decodeErr)
			}

			if attempt > 1 {
				logger.Info().
					Str("url", url).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return page, nil
		}

		// A cancelled caller is not a transport failure worth retrying.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr)
		}

		errorClass := string(transport.ClassOf(err))

		if attempt >= p.config.MaxRetries {
			retryExhaustedTotal.WithLabelValues(errorClass).Inc()
			logger.Error().
				Err(err).
				Str("url", url).
				Str("error_class", errorClass).
				Int("attempt", attempt).
				Int("max_retries", p.config.MaxRetries).
				Msg("Max retries reached")

			return nil, &PaginationError{
				URL:      url,
				Cursor:   req.Cursor,
				Attempts: attempt,
				Err:      err,
			}
		}

		retriesTotal.WithLabelValues(errorClass).Inc()
		logger.Warn().
			Err(err).
			Str("url", url).
			Str("error_class", errorClass).
			Int("attempt", attempt).
			Dur("retry_delay", p.config.RetryDelay).
			Msg("Request failed, retrying after delay")

		if err := p.sleeper.Sleep(ctx, p.config.RetryDelay); err != nil {
			logger.Warn().
				Str("url", url).
				Int("attempt", attempt).
				Msg("Context cancelled during retry delay")
			return nil, cancelled(err)
		}
	}
}
