// File: protocol/codec.go
// Package protocol implements the Hello request/response codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A request is prefix + workerID + "_" + index. A response is accepted iff
// it contains the exact request text.

package protocol

import (
	"bytes"
	"strconv"
)

// Request builds the request text for worker at index.
func Request(prefix string, worker, index int) string {
	return string(AppendRequest(make([]byte, 0, len(prefix)+16), prefix, worker, index))
}

// AppendRequest appends the request text to dst.
func AppendRequest(dst []byte, prefix string, worker, index int) []byte {
	dst = append(dst, prefix...)
	dst = strconv.AppendInt(dst, int64(worker), 10)
	dst = append(dst, Separator...)
	return strconv.AppendInt(dst, int64(index), 10)
}

// Verify reports whether response answers request.
func Verify(response, request []byte) bool {
	return bytes.Contains(response, request)
}

// VerifyString is Verify for decoded text.
func VerifyString(response, request string) bool {
	return Verify([]byte(response), []byte(request))
}
