package gopcr

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// setLatencyTimer lowers the FTDI receive latency so short replies are not
// held back for the driver's default 16ms.
func setLatencyTimer(port string, latency int) error {
	path := fmt.Sprintf("/sys/bus/usb-serial/devices/%s/latency_timer", filepath.Base(port))
	if err := os.WriteFile(path, []byte(strconv.Itoa(latency)), 0644); err != nil {
		return fmt.Errorf("failed to set latency timer: %w", err)
	}
	return nil
}
