// Package backend is the thin SQL forwarder (spec §4.7): it owns a pooled
// connection to the columnar store, attaches role/view-parameter context per
// request, forwards already-rendered SQL, and maps driver errors into the
// cgerrors taxonomy. It never re-interprets or rewrites SQL produced by
// internal/render.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"golang.org/x/time/rate"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/logging"
)

// Config configures the pooled connection to the backing ClickHouse
// cluster. URL is the §6 CLICKHOUSE_URL value, e.g.
// "http://localhost:8123" or "clickhouse://localhost:9000" — the scheme
// selects the wire protocol (HTTP vs. native), matching how
// internal/config.BackendConfig already carries this setting.
type Config struct {
	URL      string
	Database string
	User     string
	Password string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration

	// RequestsPerSecond bounds how fast this Client issues queries against
	// the backend, shaping load the same way the teacher's
	// golang.org/x/time/rate use shapes GitHub API request volume. Zero
	// disables limiting (the driver's own connection pool is the only
	// bound).
	RequestsPerSecond float64
}

func (c Config) withDefaults() Config {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 50
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	return c
}

// addrAndProtocol splits a CLICKHOUSE_URL into the host:port clickhouse-go
// dials and the wire protocol its scheme selects. "https"/"http" select the
// HTTP protocol (default port 8123 if unspecified); anything else
// (including no scheme at all) is treated as the native protocol (default
// port 9000).
func addrAndProtocol(rawURL string) (addr string, protocol clickhouse.Protocol, err error) {
	if !strings.Contains(rawURL, "://") {
		// A bare "host" or "host:port" does not parse as a URL with a host.
		rawURL = "clickhouse://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("invalid clickhouse URL %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		protocol = clickhouse.HTTP
		addr = u.Host
		if u.Port() == "" {
			addr = u.Host + ":8123"
		}
	default:
		protocol = clickhouse.Native
		addr = u.Host
		if u.Port() == "" && u.Hostname() != "" {
			addr = u.Hostname() + ":9000"
		}
	}
	return addr, protocol, nil
}

// Client wraps a pooled ClickHouse connection with error handling and the
// role/view-parameter plumbing every query needs.
type Client struct {
	db      *sql.DB
	logger  *logging.Logger
	cfg     Config
	limiter *rate.Limiter
}

// New opens a pooled client and verifies connectivity eagerly, failing
// startup fast rather than deferring the failure to the first query —
// the same move the teacher's NewClientWithDatabase makes against Neo4j.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Database == "" || cfg.User == "" {
		return nil, cgerrors.Newf(cgerrors.Internal, "clickhouse config incomplete: url=%s database=%s user=%s", cfg.URL, cfg.Database, cfg.User)
	}
	cfg = cfg.withDefaults()

	addr, protocol, err := addrAndProtocol(cfg.URL)
	if err != nil {
		return nil, cgerrors.Wrap(err, cgerrors.Internal, "failed to parse clickhouse URL")
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr:     []string{addr},
		Protocol: protocol,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
	})
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, cgerrors.Wrapf(err, classify(err), "failed to connect to clickhouse at %s", addr)
	}

	logger := logging.Component("backend")
	logger.Info("clickhouse client connected",
		"addr", addr,
		"database", cfg.Database,
		"user", cfg.User,
		"max_open_conns", cfg.MaxOpenConns)

	return &Client{db: db, logger: logger, cfg: cfg, limiter: newLimiter(cfg.RequestsPerSecond)}, nil
}

// newLimiter returns nil when rps is zero, so callers can skip Wait
// entirely rather than constructing an always-allow limiter.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), int(rps)+1)
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close clickhouse client: %w", err)
	}
	c.logger.Info("clickhouse client closed")
	return nil
}

// HealthCheck verifies connectivity, used by the HTTP service's /health
// endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return cgerrors.Wrap(err, classify(err), "clickhouse health check failed")
	}
	return nil
}

// Database returns the configured database name.
func (c *Client) Database() string {
	return c.cfg.Database
}

// NewWithDB wraps an already-open *sql.DB as a Client, bypassing New's
// dial/ping step. It exists for tests that inject a mock driver (e.g.
// DATA-DOG/go-sqlmock) in place of a live ClickHouse connection.
func NewWithDB(db *sql.DB, database string) *Client {
	return &Client{db: db, logger: logging.Component("backend_test"), cfg: Config{Database: database}}
}
