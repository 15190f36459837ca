// File: protocol/template.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Response templates with a single substitution marker.

package protocol

import (
	"strings"

	"github.com/momentics/hioload-udp/api"
)

// Template is a parsed response pattern split around its marker.
type Template struct {
	head string
	tail string
}

// ParseTemplate validates raw. It must contain Marker exactly once.
func ParseTemplate(raw string) (Template, error) {
	switch n := strings.Count(raw, Marker); n {
	case 1:
		i := strings.Index(raw, Marker)
		return Template{head: raw[:i], tail: raw[i+len(Marker):]}, nil
	case 0:
		return Template{}, api.Configurationf("parse template", "template %q has no %q marker", raw, Marker)
	default:
		return Template{}, api.Configurationf("parse template", "template %q has %d %q markers, want one", raw, n, Marker)
	}
}

// ParseTemplates validates a port → template map.
func ParseTemplates(raw map[int]string) (map[int]Template, error) {
	if len(raw) == 0 {
		return nil, api.Configurationf("parse templates", "no ports given")
	}
	out := make(map[int]Template, len(raw))
	for port, s := range raw {
		if port < 0 || port > 65535 {
			return nil, api.Configurationf("parse templates", "port %d out of range", port)
		}
		t, err := ParseTemplate(s)
		if err != nil {
			return nil, err
		}
		out[port] = t
	}
	return out, nil
}

// Expand substitutes request into the template.
func (t Template) Expand(request string) string {
	return t.head + request + t.tail
}

// AppendExpand appends the expansion to dst. request must not alias dst.
func (t Template) AppendExpand(dst, request []byte) []byte {
	dst = append(dst, t.head...)
	dst = append(dst, request...)
	return append(dst, t.tail...)
}

// String returns the template in its raw form.
func (t Template) String() string {
	return t.head + Marker + t.tail
}
