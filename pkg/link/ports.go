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
	"regexp"
	"sort"
	"strconv"

	"go.bug.st/serial"
)

// Ports lists the serial devices present on the system in natural order,
// so that /dev/ttyUSB2 comes before /dev/ttyUSB10.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, &LinkError{Op: "list", Err: err}
	}

	sort.Slice(ports, func(i, j int) bool {
		return naturalLess(ports[i], ports[j])
	})

	return ports, nil
}

var chunkRegexp = regexp.MustCompile(`\d+|\D+`)

// naturalLess compares the digit runs of device names as numbers and
// everything else as text.
func naturalLess(a, b string) bool {
	chunksA := chunkRegexp.FindAllString(a, -1)
	chunksB := chunkRegexp.FindAllString(b, -1)

	for i := 0; i < len(chunksA) && i < len(chunksB); i++ {
		x, y := chunksA[i], chunksB[i]
		if x == y {
			continue
		}

		xn, xErr := strconv.Atoi(x)
		yn, yErr := strconv.Atoi(y)
		if xErr == nil && yErr == nil && xn != yn {
			return xn < yn
		}

		return x < y
	}

	return len(chunksA) < len(chunksB)
}
