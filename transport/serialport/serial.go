// Package serialport is the shell transport over the evaluation kit's USB
// serial port.
package serialport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/pmicpanel/pmicsync/shell"
)

// ErrPortClosed is returned by SendLine after Close.
var ErrPortClosed = errors.New("serial port closed")

// lineBuffer is the number of received lines buffered for the channel.
const lineBuffer = 256

// ansi matches the color and cursor sequences the firmware shell prints.
var ansi = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// Port is a shell.Transport over a serial line.
type Port struct {
	name string
	rw   io.ReadWriteCloser
	log  zerolog.Logger

	wmu       sync.Mutex
	lines     chan string
	closed    chan struct{}
	closeOnce sync.Once
}

var _ shell.Transport = (*Port)(nil)

// Open opens name at baud, 8N1, and starts reading lines.
func Open(name string, baud int, log zerolog.Logger) (*Port, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return newPort(name, p, log), nil
}

func newPort(name string, rw io.ReadWriteCloser, log zerolog.Logger) *Port {
	p := &Port{
		name:   name,
		rw:     rw,
		log:    log.With().Str("port", name).Logger(),
		lines:  make(chan string, lineBuffer),
		closed: make(chan struct{}),
	}
	go p.readLoop()
	return p
}

// Name returns the port name.
func (p *Port) Name() string { return p.name }

func (p *Port) readLoop() {
	defer close(p.lines)

	sc := bufio.NewScanner(p.rw)
	sc.Buffer(make([]byte, 0, 1024), shell.MaxLineLength)
	for sc.Scan() {
		line := ansi.ReplaceAllString(strings.TrimRight(sc.Text(), "\r"), "")
		select {
		case p.lines <- line:
		case <-p.closed:
			return
		}
	}

	select {
	case <-p.closed:
	default:
		if err := sc.Err(); err != nil {
			p.log.Error().Err(err).Bool("unplugged", isDisconnect(err)).Msg("serial read failed")
		} else {
			p.log.Warn().Msg("serial port reached end of stream")
		}
	}
}

// isDisconnect reports whether err means the device went away.
func isDisconnect(err error) bool {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such device") ||
		strings.Contains(msg, "input/output error") ||
		strings.Contains(msg, "device not configured")
}

// SendLine writes line terminated by CR LF.
func (p *Port) SendLine(line string) error {
	select {
	case <-p.closed:
		return ErrPortClosed
	default:
	}
	p.wmu.Lock()
	defer p.wmu.Unlock()
	_, err := io.WriteString(p.rw, line+"\r\n")
	return err
}

// Lines returns received lines without terminators or color codes. The
// channel closes when the port is closed or unplugged.
func (p *Port) Lines() <-chan string { return p.lines }

// Close closes the port. The line channel closes once the reader exits.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.rw.Close()
	})
	return err
}
