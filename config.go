package lmkv

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ostafen/lmkv/native"
	"github.com/ostafen/lmkv/store/badger"
	"github.com/ostafen/lmkv/store/bbolt"
	"github.com/sirupsen/logrus"
)

const (
	GCReclaimIntervalDefault = badger.GCReclaimIntervalDefault
	GCDiscardRatioDefault    = badger.GCDiscardRatioDefault

	BackendDefault = "bbolt"
	MapSizeDefault = bbolt.DefaultMapSize
)

// Config contains lmkv configuration parameters
type Config struct {
	Backend  string
	InMemory bool
	NoSync   bool
	MapSize  int64

	MaxDBs     int
	MaxReaders int

	GCReclaimInterval time.Duration
	GCDiscardRatio    float64

	Logger logrus.FieldLogger
}

func defaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return l
}

func defaultConfig() *Config {
	return &Config{
		Backend:           BackendDefault,
		MapSize:           MapSizeDefault,
		MaxDBs:            native.DefaultMaxDBs,
		MaxReaders:        native.DefaultMaxReaders,
		GCReclaimInterval: GCReclaimIntervalDefault,
		GCDiscardRatio:    GCDiscardRatioDefault,
		Logger:            defaultLogger(),
	}
}

func (c *Config) applyOptions(opts []Option) (*Config, error) {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var ErrUnknownBackend = errors.New("lmkv: unknown backend")

// Option is a function that takes a config struct and modifies it
type Option func(c *Config) error

// WithBackend selects the storage backend: "bbolt", "badger" or "leveldb".
func WithBackend(name string) Option {
	return func(c *Config) error {
		if _, ok := backends[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownBackend, name)
		}
		c.Backend = name
		return nil
	}
}

// InMemoryMode allows to enable/disable in-memory mode.
func InMemoryMode(enable bool) Option {
	return func(c *Config) error {
		c.InMemory = enable
		return nil
	}
}

// WithNoSync skips syncing to disk on commit.
func WithNoSync(enable bool) Option {
	return func(c *Config) error {
		c.NoSync = enable
		return nil
	}
}

// WithMapSize bounds the size of the memory map. Commits that would grow
// a bbolt environment past it fail with MapFull.
func WithMapSize(size int64) Option {
	return func(c *Config) error {
		if size <= 0 {
			return fmt.Errorf("lmkv: invalid map size %d", size)
		}
		c.MapSize = size
		return nil
	}
}

// WithMaxDBs bounds the named databases an environment can hold.
func WithMaxDBs(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("lmkv: invalid max databases %d", n)
		}
		c.MaxDBs = n
		return nil
	}
}

// WithMaxReaders bounds the read-only transactions open at once.
func WithMaxReaders(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("lmkv: invalid max readers %d", n)
		}
		c.MaxReaders = n
		return nil
	}
}

// WithGCReclaimInterval sets how often the badger backend runs value log
// garbage collection.
func WithGCReclaimInterval(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("lmkv: invalid gc interval %s", d)
		}
		c.GCReclaimInterval = d
		return nil
	}
}

// WithGCDiscardRatio sets the badger value log discard ratio.
func WithGCDiscardRatio(ratio float64) Option {
	return func(c *Config) error {
		if ratio <= 0 || ratio >= 1 {
			return fmt.Errorf("lmkv: gc discard ratio must be in (0, 1), got %v", ratio)
		}
		c.GCDiscardRatio = ratio
		return nil
	}
}

// WithLogger sets the logger used by the environment and its backend.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) error {
		if l == nil {
			return errors.New("lmkv: nil logger")
		}
		c.Logger = l
		return nil
	}
}
