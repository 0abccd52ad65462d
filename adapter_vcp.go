package gopcr

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const DefaultBaudrate = 9600

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "XM PCR VCP",
		Description:        "XM PCR through the FTDI virtual com port driver",
		RequiresSerialPort: true,
		New:                NewVCP,
	}); err != nil {
		panic(err)
	}
}

type VCP struct {
	*BaseAdapter
	port serial.Port
	// readTimeout set on the port last, avoids a syscall per read
	readTimeout time.Duration
	mu          sync.Mutex
}

func NewVCP(cfg *AdapterConfig) (Adapter, error) {
	if cfg.PortBaudrate == 0 {
		cfg.PortBaudrate = DefaultBaudrate
	}
	if cfg.OpenAttempts == 0 {
		cfg.OpenAttempts = 3
	}
	return &VCP{
		BaseAdapter: NewBaseAdapter("XM PCR VCP", cfg),
	}, nil
}

func (v *VCP) Open(ctx context.Context) error {
	if v.cfg.Port == "" || v.cfg.Port == "*" {
		name, err := FindPort("*")
		if err != nil {
			return fmt.Errorf("auto-detect port: %w", err)
		}
		v.cfg.Port = name
	}
	mode := &serial.Mode{
		BaudRate: v.cfg.PortBaudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	var p serial.Port
	err := retry.Do(func() error {
		var err error
		p, err = serial.Open(v.cfg.Port, mode)
		if err != nil {
			return fmt.Errorf("failed to open com port %q : %v", v.cfg.Port, err)
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(v.cfg.OpenAttempts),
		retry.Delay(250*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			v.Message(fmt.Sprintf("retry #%d: %v", n, err))
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return err
	}
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}
	if err := setLatencyTimer(v.cfg.Port, 1); err != nil {
		v.Debugf("%v", err)
	}
	v.attach(p)
	v.Debugf("opened %s at %d bps", v.cfg.Port, v.cfg.PortBaudrate)
	return nil
}

// attach takes over an opened port. A freshly opened port blocks on read until
// a timeout is set.
func (v *VCP) attach(p serial.Port) {
	v.mu.Lock()
	v.port = p
	v.readTimeout = serial.NoTimeout
	v.mu.Unlock()
}

func (v *VCP) Write(b []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.port == nil {
		return 0, ErrClosed
	}
	return v.port.Write(b)
}

func (v *VCP) Read(p []byte, timeout time.Duration) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.port == nil {
		return 0, ErrClosed
	}
	if timeout != v.readTimeout {
		if err := v.port.SetReadTimeout(timeout); err != nil {
			return 0, fmt.Errorf("failed to set read timeout: %w", err)
		}
		v.readTimeout = timeout
	}
	return v.port.Read(p)
}

func (v *VCP) Close() error {
	v.BaseAdapter.Close()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.port != nil {
		v.port.ResetInputBuffer()
		v.port.ResetOutputBuffer()
		if err := v.port.Close(); err != nil {
			return fmt.Errorf("failed to close com port: %w", err)
		}
		v.port = nil
	}
	return nil
}

type PortInfo struct {
	Name         string
	IsUSB        bool
	VID, PID     string
	SerialNumber string
}

func (p PortInfo) String() string {
	if !p.IsUSB {
		return p.Name
	}
	return fmt.Sprintf("%s (USB %s:%s serial %s)", p.Name, p.VID, p.PID, p.SerialNumber)
}

// IsFTDI reports whether the port sits on the FT232 bridge the XM PCR ships with.
func (p PortInfo) IsFTDI() bool {
	return p.IsUSB && strings.EqualFold(p.VID, "0403") && strings.EqualFold(p.PID, "6001")
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, errors.New("no serial ports found")
	}
	out := make([]PortInfo, 0, len(ports))
	for _, port := range ports {
		out = append(out, PortInfo{
			Name:         port.Name,
			IsUSB:        port.IsUSB,
			VID:          port.VID,
			PID:          port.PID,
			SerialNumber: port.SerialNumber,
		})
	}
	return out, nil
}

// FindPort resolves a port name. "*" picks the first FTDI port found.
func FindPort(portName string) (string, error) {
	if runtime.GOOS == "windows" {
		portName = strings.ToUpper(portName)
	}
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	for _, port := range ports {
		if portName == "*" && port.IsFTDI() {
			return port.Name, nil
		}
		if port.Name == portName {
			return port.Name, nil
		}
	}
	return "", errors.New("no device selected")
}
