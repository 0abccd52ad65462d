package gopcr

import (
	"errors"

	"github.com/roffe/gopcr/pkg/metrics"
	"go.uber.org/zap"
)

type Opts func(s *Session) error

func OptConfig(cfg *Config) Opts {
	return func(s *Session) error {
		s.cfg = cfg.withDefaults()
		return nil
	}
}

func OptLogger(log *zap.Logger) Opts {
	return func(s *Session) error {
		if log == nil {
			return errors.New("nil logger")
		}
		s.log = log
		return nil
	}
}

func OptMetrics(m *metrics.Metrics) Opts {
	return func(s *Session) error {
		s.metrics = m
		return nil
	}
}

// OptWindow sets the initial window top and selected channel.
func OptWindow(top, selected int) Opts {
	return func(s *Session) error {
		s.initialTop = top
		s.initialSelected = ClampChannel(selected)
		return nil
	}
}
