package gopcr

import (
	"fmt"
	"sync"
)

type BaseAdapter struct {
	name string
	cfg  *AdapterConfig

	closeOnce sync.Once
	closeChan chan struct{}
}

func NewBaseAdapter(name string, cfg *AdapterConfig) *BaseAdapter {
	if cfg == nil {
		cfg = &AdapterConfig{}
	}
	return &BaseAdapter{
		name:      name,
		cfg:       cfg,
		closeChan: make(chan struct{}),
	}
}

// Name returns the adapter name.
func (base *BaseAdapter) Name() string {
	return base.name
}

// Closed reports whether Close has been called.
func (base *BaseAdapter) Closed() bool {
	select {
	case <-base.closeChan:
		return true
	default:
		return false
	}
}

func (base *BaseAdapter) Close() {
	base.closeOnce.Do(func() {
		close(base.closeChan)
	})
}

// Message forwards a human readable status line to the configured sink.
func (base *BaseAdapter) Message(msg string) {
	if base.cfg.OnMessage != nil {
		base.cfg.OnMessage(msg)
	}
}

func (base *BaseAdapter) Debugf(format string, args ...any) {
	if base.cfg.Debug {
		base.Message(base.name + ": " + fmt.Sprintf(format, args...))
	}
}
