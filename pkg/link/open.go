// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package link

import (
	"errors"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// DefaultBaudRate is the baud rate of the board's UART.
const DefaultBaudRate = 115200

// TCPPrefix selects a TCP connection instead of a serial device, which is
// useful for bench testing against a board simulator.
const TCPPrefix = "tcp://"

const dialTimeout = 5 * time.Second

// Options configures the connection opened by Open.
type Options struct {
	Device      string        `yaml:"device" env:"DEVICE"`
	Baud        int           `yaml:"baud" env:"BAUD"`
	ReadTimeout time.Duration `yaml:"read-timeout" env:"READ_TIMEOUT"`
}

var ErrNoDevice = errors.New("no device configured")

// Open opens the configured device and returns a Transport over it. Serial
// devices are opened in 8N1 mode. Failures are returned as *LinkError so
// that a supervisor can tell them apart from configuration mistakes.
func Open(opts Options) (*Transport, error) {
	if opts.Device == "" {
		return nil, ErrNoDevice
	}

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultTimeout
	}

	if addr, found := strings.CutPrefix(opts.Device, TCPPrefix); found {
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			return nil, &LinkError{Op: "open", Device: opts.Device, Err: err}
		}

		logrus.WithField("address", addr).Debug("Connected to board simulator")
		return New(conn, opts.Device, opts.ReadTimeout), nil
	}

	if opts.Baud <= 0 {
		opts.Baud = DefaultBaudRate
	}

	port, err := serial.Open(opts.Device, &serial.Mode{
		BaudRate: opts.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, &LinkError{Op: "open", Device: opts.Device, Err: err}
	}

	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, &LinkError{Op: "open", Device: opts.Device, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"device": opts.Device,
		"baud":   opts.Baud,
	}).Debug("Opened serial device")

	return New(port, opts.Device, opts.ReadTimeout), nil
}
