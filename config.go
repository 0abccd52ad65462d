package gopcr

import "time"

// Config tunes the protocol engine. The zero value of any field means "use
// the default".
type Config struct {
	// ChunkSize bounds a single transport read.
	ChunkSize int
	// ReadTimeout is the poll timeout of a single transport read.
	ReadTimeout time.Duration
	// RetryStep is the sleep between reads while awaiting a response.
	RetryStep time.Duration
	// BufferCapacity is the reassembly buffer size. It is raised to at least
	// ChunkSize plus the longest frame.
	BufferCapacity int
	// InitTimeout bounds each response of the startup handshake.
	InitTimeout time.Duration
	// ChangeTimeout bounds the change-channel acknowledgement.
	ChangeTimeout time.Duration
	// PollTimeout is passed to AwaitResponse on every scheduler tick. Zero
	// means a single poll.
	PollTimeout time.Duration
	// ResponseTimeout is how long the scheduler waits for one channel before
	// moving on.
	ResponseTimeout time.Duration
	// TickInterval is the scheduler timer period.
	TickInterval time.Duration
	// CommandRate caps commands per second, 0 means unlimited.
	CommandRate int
	// EventBuffer is the capacity of the event channel.
	EventBuffer int
}

func DefaultConfig() *Config {
	return &Config{
		ChunkSize:       96,
		ReadTimeout:     10 * time.Millisecond,
		RetryStep:       100 * time.Millisecond,
		BufferCapacity:  DefaultBufferCapacity,
		InitTimeout:     5 * time.Second,
		ChangeTimeout:   2 * time.Second,
		PollTimeout:     0,
		ResponseTimeout: time.Second,
		TickInterval:    10 * time.Millisecond,
		CommandRate:     50,
		EventBuffer:     100,
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.ChunkSize <= 0 {
		out.ChunkSize = d.ChunkSize
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.RetryStep <= 0 {
		out.RetryStep = d.RetryStep
	}
	if out.BufferCapacity <= 0 {
		out.BufferCapacity = d.BufferCapacity
	}
	// a full chunk must fit behind an incomplete frame of any length
	if out.BufferCapacity < out.ChunkSize+maxFrameLen {
		out.BufferCapacity = out.ChunkSize + maxFrameLen
	}
	if out.InitTimeout <= 0 {
		out.InitTimeout = d.InitTimeout
	}
	if out.ChangeTimeout <= 0 {
		out.ChangeTimeout = d.ChangeTimeout
	}
	if out.PollTimeout < 0 {
		out.PollTimeout = 0
	}
	if out.ResponseTimeout <= 0 {
		out.ResponseTimeout = d.ResponseTimeout
	}
	if out.TickInterval <= 0 {
		out.TickInterval = d.TickInterval
	}
	if out.CommandRate < 0 {
		out.CommandRate = 0
	}
	if out.EventBuffer <= 0 {
		out.EventBuffer = d.EventBuffer
	}
	return &out
}
