package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/trade-paginator/pkg/logging"
	"github.com/Sternrassler/trade-paginator/pkg/transport"
	"github.com/rs/zerolog"
)

// PageRequest identifies one page of the upstream endpoint.
type PageRequest struct {
	BaseURL string
	Cursor  uint64
}

// URL renders the request as <BaseURL>?tid=<Cursor>.
func (r PageRequest) URL() string {
	sep := "?"
	if strings.Contains(r.BaseURL, "?") {
		sep = "&"
	}
	return r.BaseURL + sep + "tid=" + strconv.FormatUint(r.Cursor, 10)
}

// Paginator fetches pages through a Transport. It keeps no state between
// calls; each Paginate call owns its own cursor.
type Paginator struct {
	transport transport.Transport
	config    Config
	sleeper   Sleeper
	logger    zerolog.Logger
}

// Option customizes a Paginator.
type Option func(*Paginator)

// WithSleeper replaces the wall-clock sleeper used for retry and throttle waits.
func WithSleeper(s Sleeper) Option {
	return func(p *Paginator) {
		if s != nil {
			p.sleeper = s
		}
	}
}

// WithLogger replaces the paginator logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Paginator) {
		p.logger = logger
	}
}

// New creates a new paginator.
func New(t transport.Transport, cfg Config, opts ...Option) (*Paginator, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Paginator{
		transport: t,
		config:    cfg,
		sleeper:   timerSleeper{},
		logger:    logging.NewLogger("paginator"),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Config returns a copy of the paginator configuration.
func (p *Paginator) Config() Config {
	return p.config
}
