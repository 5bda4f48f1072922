package loggable

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type LoggableOption func(*Loggable) error

// Loggable is embedded by clients and mechanisms to give them leveled
// printf-style logging.  The zero value discards everything.
type Loggable struct {
	logger log.Logger
}

func (c *Loggable) log(lvl func(log.Logger) log.Logger, msg string, args ...interface{}) {
	if c.logger == nil {
		return
	}

	_ = lvl(c.logger).Log("msg", fmt.Sprintf(msg, args...))
}

func (c *Loggable) Debugf(msg string, args ...interface{}) {
	c.log(level.Debug, msg, args...)
}
func (c *Loggable) Infof(msg string, args ...interface{}) {
	c.log(level.Info, msg, args...)
}
func (c *Loggable) Warnf(msg string, args ...interface{}) {
	c.log(level.Warn, msg, args...)
}
func (c *Loggable) Errorf(msg string, args ...interface{}) {
	c.log(level.Error, msg, args...)
}

// Logger returns the underlying logger, or a no-op logger when none is set
func (c *Loggable) Logger() log.Logger {
	if c.logger == nil {
		return log.NewNopLogger()
	}

	return c.logger
}

func WithLogger(l log.Logger) LoggableOption {
	return func(c *Loggable) error {
		c.logger = l
		return nil
	}
}

// WithLevel restricts output to the levels allowed by opt, eg. level.AllowInfo().
// It must be applied after WithLogger.
func WithLevel(opt level.Option) LoggableOption {
	return func(c *Loggable) error {
		if c.logger == nil {
			return nil
		}

		c.logger = level.NewFilter(c.logger, opt)
		return nil
	}
}

// With returns a copy of c whose log lines carry the extra key/value pairs
func (c *Loggable) With(keyvals ...interface{}) Loggable {
	if c.logger == nil {
		return *c
	}

	return Loggable{logger: log.With(c.logger, keyvals...)}
}
