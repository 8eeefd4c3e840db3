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
	"fmt"
	"net"
	"os"
)

// ErrUnterminated is returned by WriteFrame for frames which do not end
// with a newline.
var ErrUnterminated = errors.New("link: frame is not newline terminated")

// LinkError represents a failure of the underlying connection, like the
// board being unplugged. It is fatal to the session using the link.
type LinkError struct {
	Op     string // "open", "read", "write"
	Device string
	Err    error
}

func (e *LinkError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("link: %s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("link: %s %s: %v", e.Op, e.Device, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// IsLinkError reports whether err is or wraps a *LinkError.
func IsLinkError(err error) bool {
	var le *LinkError
	return errors.As(err, &le)
}

// isTimeout reports whether err is a read deadline expiring, which is not
// a failure of the link.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
