// =============================================================================
// discover.go - Evaluation Kit Port Discovery
// =============================================================================
//
// Finds the serial port of an attached evaluation kit. The CLI either uses
// the port named on the command line or in the config file, or picks the
// first port that looks like a USB CDC device.
//
// The search order for candidate ports:
//   1. The port the user asked for, if any
//   2. Ports matching kitPortPatterns, in the order the OS lists them
//
// When the kit was just plugged in or is rebooting its interface MCU, the
// port can take a moment to appear. WaitForPort polls the port list until
// it shows up or the timeout expires.
//
// =============================================================================

package serialport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	// portPollInterval is how often the port list is re-read while waiting.
	portPollInterval = 100 * time.Millisecond

	// DefaultWaitTimeout is how long WaitForPort waits by default.
	DefaultWaitTimeout = 4 * time.Second
)

// kitPortPatterns are substrings of port names used by USB CDC ACM devices
// on Linux, macOS and Windows.
var kitPortPatterns = []string{"ttyACM", "cu.usbmodem", "tty.usbmodem", "COM"}

// ErrNoPort is returned when no candidate port exists.
var ErrNoPort = errors.New("no evaluation kit serial port found")

// listPorts is replaced in tests.
var listPorts = serial.GetPortsList

// ListPorts returns every serial port name, sorted.
func ListPorts() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// Candidates returns the ports that look like an evaluation kit.
func Candidates() ([]string, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range ports {
		for _, pat := range kitPortPatterns {
			if strings.Contains(p, pat) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// FindPort returns preferred when set, otherwise the first candidate.
func FindPort(preferred string) (string, error) {
	if preferred != "" {
		return preferred, nil
	}
	c, err := Candidates()
	if err != nil {
		return "", err
	}
	if len(c) == 0 {
		return "", ErrNoPort
	}
	return c[0], nil
}

// WaitForPort polls until name is listed, ctx is done or timeout expires.
func WaitForPort(ctx context.Context, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(portPollInterval)
	defer ticker.Stop()
	for {
		ports, err := ListPorts()
		if err == nil {
			for _, p := range ports {
				if p == name {
					return nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("port %s did not appear: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}
