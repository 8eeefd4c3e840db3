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

// Package link implements the line transport between the engine host and
// the board: newline terminated ASCII frames over a byte stream with a
// read timeout.
package link

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// MaxFrameLength is the number of bytes a frame may grow to without a
// newline before it is discarded as line noise.
const MaxFrameLength = 1024

// DefaultTimeout is the read timeout used when none is configured.
const DefaultTimeout = time.Second

// readDeadliner is implemented by connections which time reads out using
// deadlines, like net.Conn. Serial ports time reads out on their own.
type readDeadliner interface {
	SetReadDeadline(time.Time) error
}

// Transport reads and writes frames over a connection. It is not safe for
// concurrent use; the session owning it is its only reader and writer.
type Transport struct {
	conn    io.ReadWriter
	device  string
	timeout time.Duration

	pending    []byte // bytes of a frame whose newline has not arrived yet
	chunk      []byte
	discarding bool // dropping the rest of an overlong frame

	Logger *logrus.Entry
}

// New creates a Transport over the given connection. Reads which see no
// complete frame within timeout return an empty frame.
func New(conn io.ReadWriter, device string, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Transport{
		conn:    conn,
		device:  device,
		timeout: timeout,
		chunk:   make([]byte, 256),

		Logger: logrus.WithField("device", device),
	}
}

// ReadLine blocks until a full frame is received or the read timeout
// elapses. The frame is returned without its line terminator and
// surrounding blanks. A timeout returns "" and a nil error so that callers
// can poll; only failures of the connection return a *LinkError.
func (t *Transport) ReadLine() (string, error) {
	deadline := time.Now().Add(t.timeout)

	for {
		if frame, ok := t.nextFrame(); ok {
			t.Logger.Tracef("board> %s", frame)
			return frame, nil
		}

		if !time.Now().Before(deadline) {
			return "", nil
		}

		if d, ok := t.conn.(readDeadliner); ok {
			if err := d.SetReadDeadline(deadline); err != nil {
				return "", &LinkError{Op: "read", Device: t.device, Err: err}
			}
		}

		n, err := t.conn.Read(t.chunk)
		t.buffer(t.chunk[:n])

		switch {
		case err != nil && isTimeout(err):
			// frames read along with the timeout are returned first
			deadline = time.Now()
		case err != nil:
			return "", &LinkError{Op: "read", Device: t.device, Err: err}
		case n == 0:
			// serial ports return no data and no error on timeout
			deadline = time.Now()
		}
	}
}

// nextFrame pops the first complete frame off the pending bytes.
func (t *Transport) nextFrame() (string, bool) {
	i := bytes.IndexByte(t.pending, '\n')
	if i < 0 {
		return "", false
	}

	frame := strings.TrimSpace(string(t.pending[:i]))

	// move the remaining bytes to the front so pending does not keep
	// growing over the lifetime of the link
	t.pending = t.pending[:copy(t.pending, t.pending[i+1:])]
	return frame, true
}

// buffer appends received bytes to the pending ones. A frame which grows
// past MaxFrameLength is dropped up to and including its newline.
func (t *Transport) buffer(data []byte) {
	if t.discarding {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			return
		}

		data = data[i+1:]
		t.discarding = false
	}

	t.pending = append(t.pending, data...)

	last := bytes.LastIndexByte(t.pending, '\n')
	if len(t.pending)-(last+1) <= MaxFrameLength {
		return
	}

	t.Logger.WithField("bytes", len(t.pending)-(last+1)).Warn("discarding unterminated frame")
	t.pending = t.pending[:last+1]
	t.discarding = true
}

// WriteLine writes the given text followed by a single newline.
func (t *Transport) WriteLine(text string) error {
	return t.WriteFrame(text + "\n")
}

// WriteFrame writes an already encoded, newline terminated frame using a
// single write to the connection.
func (t *Transport) WriteFrame(frame string) error {
	if !strings.HasSuffix(frame, "\n") {
		return ErrUnterminated
	}

	t.Logger.Tracef("board< %s", strings.TrimSuffix(frame, "\n"))

	n, err := io.WriteString(t.conn, frame)
	if err == nil && n < len(frame) {
		err = io.ErrShortWrite
	}

	if err != nil {
		return &LinkError{Op: "write", Device: t.device, Err: err}
	}

	return nil
}

// Close closes the underlying connection if it can be closed.
func (t *Transport) Close() error {
	if closer, ok := t.conn.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
