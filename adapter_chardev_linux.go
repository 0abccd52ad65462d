//go:build linux

package gopcr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const DefaultCharDevice = "/dev/xmpcr"

// every bulk read from the FT232 starts with two modem status bytes
const ftdiStatusLen = 2

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "XM PCR chardev",
		Description:        "XM PCR through a raw USB bulk character device",
		RequiresSerialPort: false,
		New:                NewCharDev,
	}); err != nil {
		panic(err)
	}
}

type CharDev struct {
	*BaseAdapter
	fd      int
	scratch []byte
	mu      sync.Mutex
}

func NewCharDev(cfg *AdapterConfig) (Adapter, error) {
	if cfg.Port == "" || cfg.Port == "*" {
		cfg.Port = DefaultCharDevice
	}
	return &CharDev{
		BaseAdapter: NewBaseAdapter("XM PCR chardev", cfg),
		fd:          -1,
	}, nil
}

func (c *CharDev) Open(ctx context.Context) error {
	fd, err := unix.Open(c.cfg.Port, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.cfg.Port, err)
	}
	c.mu.Lock()
	c.fd = fd
	c.mu.Unlock()
	c.Debugf("opened %s", c.cfg.Port)
	return nil
}

func (c *CharDev) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fd < 0 {
		return 0, ErrClosed
	}
	written := 0
	for written < len(b) {
		n, err := unix.Write(c.fd, b[written:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				if err := c.wait(unix.POLLOUT, -1); err != nil {
					return written, err
				}
				continue
			}
			return written, err
		}
		written += n
	}
	return written, nil
}

func (c *CharDev) Read(p []byte, timeout time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fd < 0 {
		return 0, ErrClosed
	}
	if err := c.wait(unix.POLLIN, int(timeout.Milliseconds())); err != nil {
		if errors.Is(err, ErrTimeout) {
			return 0, nil
		}
		return 0, err
	}
	if cap(c.scratch) < len(p)+ftdiStatusLen {
		c.scratch = make([]byte, len(p)+ftdiStatusLen)
	}
	buf := c.scratch[:len(p)+ftdiStatusLen]
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	if n <= ftdiStatusLen {
		return 0, nil
	}
	return copy(p, buf[ftdiStatusLen:n]), nil
}

func (c *CharDev) wait(events int16, timeoutMs int) error {
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: events}}
	for {
		n, err := unix.Poll(fds, timeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll %s: %w", c.cfg.Port, err)
		}
		if n == 0 {
			return ErrTimeout
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return fmt.Errorf("poll %s: device gone (revents 0x%x)", c.cfg.Port, fds[0].Revents)
		}
		return nil
	}
}

func (c *CharDev) Close() error {
	c.BaseAdapter.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fd >= 0 {
		err := unix.Close(c.fd)
		c.fd = -1
		if err != nil {
			return fmt.Errorf("failed to close %s: %w", c.cfg.Port, err)
		}
	}
	return nil
}
