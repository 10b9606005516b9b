// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Binaek Sarkar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpapi is the PDP's own decision-serving HTTP surface (spec.md
// §6): POST /decisions for a single subscription, POST /decisions/multi
// for the multi-subscription stream, and GET /health. It is not a PIP
// transport adapter - those stay out of scope per spec.md §1.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/binaek/gocoll/collection"
	"golang.org/x/exp/slices"

	"github.com/sentrie-sh/saplpdp/compiler"
	"github.com/sentrie-sh/saplpdp/pdp"
)

// ListenerServerPair couples one bound listener with the server it feeds.
type ListenerServerPair struct {
	Listener net.Listener
	Server   *http.Server
}

func (p *ListenerServerPair) Close() error {
	if err := p.Listener.Close(); err != nil {
		return err
	}
	return p.Server.Close()
}

// API serves decisions for one compiled PDP.
type API struct {
	pdp       *pdp.PDP
	cc        *compiler.CompilationContext
	listeners []*ListenerServerPair
}

// New wraps an already-compiled PDP for HTTP serving.
func New(p *pdp.PDP, cc *compiler.CompilationContext) *API {
	return &API{pdp: p, cc: cc}
}

func resolveBindings(port int, listen []string) ([]string, error) {
	predefined := [...]string{"local", "local4", "local6", "network", "network4", "network6"}

	for _, listenAddr := range listen {
		if slices.Contains(predefined[:], listenAddr) && len(listen) != 1 {
			return nil, fmt.Errorf("when using predefined listen addresses, there must be exactly one address")
		}
	}

	if len(listen) > 0 && slices.Contains(predefined[:], listen[0]) {
		switch listen[0] {
		case "local":
			return []string{net.JoinHostPort("localhost", fmt.Sprintf("%d", port))}, nil
		case "local4":
			return []string{net.JoinHostPort("127.0.0.1", fmt.Sprintf("%d", port))}, nil
		case "local6":
			return []string{net.JoinHostPort("[::1]", fmt.Sprintf("%d", port))}, nil
		case "network":
			return []string{net.JoinHostPort("", fmt.Sprintf("%d", port))}, nil
		case "network4":
			return []string{net.JoinHostPort("0.0.0.0", fmt.Sprintf("%d", port))}, nil
		case "network6":
			return []string{net.JoinHostPort("[::]", fmt.Sprintf("%d", port))}, nil
		}
	}

	addresses := collection.Map(
		collection.From(listen...),
		func(listenAddr string) string {
			return net.JoinHostPort(listenAddr, fmt.Sprintf("%d", port))
		},
	).Elements()
	return addresses, nil
}

// NewMux builds the route table for a. Exported so tests can exercise
// handlers directly without binding a real listener.
func NewMux(a *API) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /decisions", http.HandlerFunc(a.handleDecision))
	mux.Handle("POST /decisions/multi", http.HandlerFunc(a.handleMultiDecision))
	mux.Handle("GET /health", http.HandlerFunc(a.handleHealth))
	return mux
}

// Setup binds every resolved address and wires the route table.
func (a *API) Setup(ctx context.Context, port int, listen []string) error {
	mux := NewMux(a)

	bindings, err := resolveBindings(port, listen)
	if err != nil {
		return err
	}

	a.listeners = make([]*ListenerServerPair, 0, len(bindings))
	for _, binding := range bindings {
		ln, err := net.Listen("tcp", binding)
		if err != nil {
			for _, l := range a.listeners {
				_ = l.Close()
			}
			a.listeners = nil
			return fmt.Errorf("failed to listen on %s: %w", binding, err)
		}
		a.listeners = append(a.listeners, &ListenerServerPair{
			Listener: ln,
			Server: &http.Server{
				Handler:      mux,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 0, // the multi-subscription stream is long-lived
				BaseContext: func(net.Listener) context.Context {
					return ctx
				},
			},
		})
	}
	return nil
}

// StartServer serves every bound listener until it is closed.
func (a *API) StartServer(ctx context.Context) {
	var wg sync.WaitGroup
	for _, ln := range a.listeners {
		server := ln.Server
		listener := ln.Listener
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
				_ = err
			}
		}()
	}
	wg.Wait()
}

// StopServer closes every listener.
func (a *API) StopServer(context.Context) error {
	for _, ln := range a.listeners {
		_ = ln.Close()
	}
	a.listeners = nil
	return nil
}
