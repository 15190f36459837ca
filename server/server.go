// Package server
// Author: momentics <momentics@gmail.com>
//
// Hello protocol servers: a goroutine-per-port blocking engine and a
// single-loop reactor engine with a bounded slot pool.

package server

import (
	"sort"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/protocol"
)

var (
	_ api.Server = (*Blocking)(nil)
	_ api.Server = (*Nonblocking)(nil)
)

type engineState uint8

const (
	stateNew engineState = iota
	stateRunning
	stateClosed
)

func (s engineState) checkStart(op string) error {
	switch s {
	case stateRunning:
		return api.Lifecycle(op, "server already started")
	case stateClosed:
		return api.Lifecycle(op, "server closed")
	}
	return nil
}

func (s engineState) checkClose(op string) error {
	switch s {
	case stateNew:
		return api.Lifecycle(op, "server not started")
	case stateClosed:
		return api.Lifecycle(op, "server already closed")
	}
	return nil
}

// binding is one port and the template answering on it.
type binding struct {
	port     int
	template protocol.Template
}

// parseBindings validates the start arguments; ports come back sorted.
func parseBindings(op string, threads int, templates map[int]string) ([]binding, error) {
	if threads < 1 {
		return nil, api.Configurationf(op, "thread count %d must be positive", threads)
	}
	tpls, err := protocol.ParseTemplates(templates)
	if err != nil {
		return nil, err
	}
	out := make([]binding, 0, len(tpls))
	for port, tpl := range tpls {
		out = append(out, binding{port: port, template: tpl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].port < out[j].port })
	return out, nil
}
