// SPDX-License-Identifier: Apache-2.0

// Package function implements the function broker (C6): dispatch of
// FunctionInvocation by fully-qualified name and arity, exact-arity before
// variadic, with an unknown function surfacing as an ErrorValue rather than
// a panic. Every registered function must be pure: no blocking, no I/O, no
// observation of wall-clock time (spec.md §4.6).
package function

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/binaek/perch"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/sentrie-sh/saplpdp/value"
)

// memoizeTTL bounds how long a pure call's result is reused. Pure functions
// are deterministic, so this exists only to bound cache memory, not to
// track staleness.
const memoizeTTL = 10 * time.Minute

// Impl is a registered function body. args is already evaluated; a
// variadic function receives every argument as its own element of args,
// so len(args) is at least its Signature's Arity.
type Impl func(args []value.Value) value.Value

// Signature names one overload of a fully-qualified function name.
type Signature struct {
	Arity    int
	Variadic bool
}

// Broker dispatches function calls by fully-qualified name and arity. The
// zero value is not usable; construct with New.
type Broker struct {
	mu        sync.RWMutex
	overloads map[string]map[Signature]Impl

	memoize *perch.Perch[value.Value]
}

// Option configures a Broker at construction time.
type Option func(*Broker)

// WithMemoization enables a bounded memoization cache for calls to pure
// functions, keyed by the structural hash of the function name plus its
// arguments, mirroring the teacher's callMemoizePerch pattern in its
// executor. sizeMB bounds the cache's capacity the same way the teacher
// sizes its own Perch: megabytes converted to bytes.
func WithMemoization(sizeMB int) Option {
	return func(b *Broker) {
		b.memoize = perch.New[value.Value](sizeMB << 20)
	}
}

func New(opts ...Option) *Broker {
	b := &Broker{overloads: make(map[string]map[Signature]Impl)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register adds an overload for fqn. Registering the same Signature twice
// for the same name replaces the previous implementation.
func (b *Broker) Register(fqn string, sig Signature, impl Impl) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.overloads[fqn] == nil {
		b.overloads[fqn] = make(map[Signature]Impl)
	}
	b.overloads[fqn][sig] = impl
}

// RegisterLibrary registers every function exposed by lib under its
// declared namespace, e.g. "strings" + "upper" -> "strings.upper".
func (b *Broker) RegisterLibrary(namespace string, lib map[string]struct {
	Sig  Signature
	Impl Impl
}) {
	for name, entry := range lib {
		fqn := name
		if namespace != "" {
			fqn = namespace + "." + name
		}
		b.Register(fqn, entry.Sig, entry.Impl)
	}
}

// Call dispatches fqn(args...), preferring an exact-arity overload over a
// variadic one, per spec.md §4.3 ("Variadic signatures are supported").
// Unknown function or no matching overload yields value.ErrUnknownFunction
// rather than an error return, matching the evaluator's error-as-value
// contract (spec.md §7).
func (b *Broker) Call(fqn string, args []value.Value) value.Value {
	b.mu.RLock()
	overloads, ok := b.overloads[fqn]
	b.mu.RUnlock()
	if !ok {
		return value.ErrUnknownFunction(fqn)
	}

	impl, sig, ok := resolveOverload(overloads, len(args))
	if !ok {
		return value.NewError("function %s has no overload accepting %d argument(s)", fqn, len(args))
	}

	if b.memoize == nil {
		return b.invoke(impl, args)
	}

	key, err := cacheKey(fqn, sig, args)
	if err != nil {
		return b.invoke(impl, args)
	}
	cached, ok := b.memoize.Peek(key)
	if ok {
		return cached
	}
	result := b.invoke(impl, args)
	_, _ = b.memoize.Get(context.Background(), key, memoizeTTL, func(context.Context, string) (value.Value, error) {
		return result, nil
	})
	return result
}

// resolveOverload picks the Signature matching argc: an exact match wins
// over a variadic one whose Arity is the minimum required count.
func resolveOverload(overloads map[Signature]Impl, argc int) (Impl, Signature, bool) {
	if impl, ok := overloads[Signature{Arity: argc}]; ok {
		return impl, Signature{Arity: argc}, true
	}
	var best *Signature
	for sig := range overloads {
		if !sig.Variadic || argc < sig.Arity {
			continue
		}
		if best == nil || sig.Arity > best.Arity {
			s := sig
			best = &s
		}
	}
	if best == nil {
		return nil, Signature{}, false
	}
	return overloads[*best], *best, true
}

// invoke calls impl, converting any panic into an ErrorValue instead of
// letting it unwind past the broker, matching perch.Perch.loadInto's
// recover()-wrapped loader pattern.
func (b *Broker) invoke(impl Impl, args []value.Value) (result value.Value) {
	defer func() {
		if r := recover(); r != nil {
			result = value.NewError("function panicked: %v", r)
		}
	}()
	return impl(args)
}

func cacheKey(fqn string, sig Signature, args []value.Value) (string, error) {
	repr := make([]string, len(args))
	for i, a := range args {
		repr[i] = a.String()
	}
	h, err := hashstructure.Hash(struct {
		FQN  string
		Sig  Signature
		Args []string
	}{FQN: fqn, Sig: sig, Args: repr}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d/%x", fqn, sig.Arity, h), nil
}

// Names returns every registered fully-qualified function name, sorted.
func (b *Broker) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.overloads))
	for name := range b.overloads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Namespace returns the leading dotted segment of fqn, or "" if fqn has
// none (e.g. "upper" has no namespace; "strings.upper" has "strings").
func Namespace(fqn string) string {
	if i := strings.IndexByte(fqn, '.'); i >= 0 {
		return fqn[:i]
	}
	return ""
}
