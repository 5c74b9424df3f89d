package surf

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger routes all engine diagnostics through log. The default is
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithHTTPClient sets the client used for pulse requests. The default is
// http.DefaultClient; tests typically install a stubbed transport here.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		if client != nil {
			e.client = client
		}
	}
}

// WithClock sets the engine clock. Plugins schedule timers against it; a
// clockwork fake clock makes interval behavior deterministic in tests.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithRequestTimeout bounds each pulse request. Zero (the default) means
// no timeout beyond the engine's own lifetime.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) { e.requestTimeout = d }
}

// WithStateKey sets the key ExportState and ImportState use to sign (or
// encrypt) serialized state. Without one, those operations fail with
// ErrNoStateKey.
func WithStateKey(key []byte) Option {
	return func(e *Engine) { e.stateKey = append([]byte(nil), key...) }
}
