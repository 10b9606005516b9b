// SPDX-License-Identifier: Apache-2.0

// Package attribute implements the attribute broker (C4): for every
// AttributeFinderInvocation it maintains at most one live upstream stream
// shared by all current subscribers, and keeps that stream connected to the
// correct policy information point (PIP) as registrations change - without
// ever dropping a live subscriber during a hot-swap (spec.md §4.4, §8).
package attribute

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/sentrie-sh/saplpdp/repository"
	"github.com/sentrie-sh/saplpdp/value"
	"github.com/sentrie-sh/saplpdp/xerr"
)

// MatchKind distinguishes a PIP finder's claim over an attribute name.
type MatchKind int

const (
	ExactMatch MatchKind = iota
	VarargsMatch
)

// Invocation is the hashable key identifying one attribute lookup
// (AttributeFinderInvocation in spec.md §3).
type Invocation struct {
	AttributeName  string
	Entity         string // canonical encoding of the target entity; "" for environment attributes
	Arguments      string // canonical encoding of the argument list
	Fresh          bool
	InitialTimeout time.Duration
	PollInterval   time.Duration
	Backoff        time.Duration
	Retries        int
}

// hash returns the structural hash of every field of inv, used as the
// activeStreamIndex key (spec.md §3).
func (inv Invocation) hash() uint64 {
	h, err := hashstructure.Hash(inv, hashstructure.FormatV2, nil)
	if err != nil {
		// hashstructure only fails on unsupported field kinds; Invocation's
		// fields are all hashable primitives, so this is unreachable.
		panic(err)
	}
	return h
}

// FinderFunc produces a fresh upstream sequence of traced values for one
// invocation. The broker keeps reading it until ctx is cancelled or the
// channel closes; what a closure costs is described on pumpFinder.
type FinderFunc func(ctx context.Context, inv Invocation) <-chan value.Traced

// FinderSpecification is one PIP's claim over an attribute name.
type FinderSpecification struct {
	PIPName       string
	AttributeName string
	Match         MatchKind
	Invoke        FinderFunc
}

// PIPSpecification describes a policy information point and the finders it
// exposes. Constructed by a PIP author's `specification()` method per the
// spec's replacement for reflection-driven library loading (spec.md §9).
type PIPSpecification struct {
	Name    string
	Finders []FinderSpecification
}

// stream is one live upstream shared by every current subscriber of an
// invocation.
type stream struct {
	inv    Invocation
	cancel context.CancelFunc

	subscribers atomic.Pointer[[]chan value.Traced] // copy-on-write

	graceMu    sync.Mutex
	graceTimer *time.Timer

	initialOnce  sync.Once
	initialTimer *time.Timer
}

func newStream(inv Invocation) *stream {
	s := &stream{inv: inv}
	empty := []chan value.Traced{}
	s.subscribers.Store(&empty)
	return s
}

// armInitialTimeout starts the stream's InitialTimeout clock, if any: if no
// emission reaches disarmInitialTimeout before it fires, an ErrorValue is
// fanned out once without cancelling the stream (spec.md §5 "Timeouts").
// connect calls it on every (re)connect, but all timers of one stream share
// initialOnce, so the error is fanned out at most once per stream and never
// after the first real emission.
func (s *stream) armInitialTimeout(afterFunc func(time.Duration, func()) *time.Timer) {
	if s.inv.InitialTimeout <= 0 {
		return
	}
	s.initialTimer = afterFunc(s.inv.InitialTimeout, func() {
		s.initialOnce.Do(func() {
			s.fanOut(value.NewTraced(value.ErrAttributeInitialTimeout(s.inv.AttributeName)))
		})
	})
}

// disarmInitialTimeout stops a pending InitialTimeout timer and permanently
// suppresses it, called once the stream's first real emission arrives.
func (s *stream) disarmInitialTimeout() {
	if s.initialTimer != nil {
		s.initialTimer.Stop()
	}
	s.initialOnce.Do(func() {})
}

func (s *stream) addSubscriber() chan value.Traced {
	ch := make(chan value.Traced, 16)
	for {
		old := s.subscribers.Load()
		next := make([]chan value.Traced, len(*old)+1)
		copy(next, *old)
		next[len(*old)] = ch
		if s.subscribers.CompareAndSwap(old, &next) {
			return ch
		}
	}
}

func (s *stream) removeSubscriber(ch chan value.Traced) int {
	for {
		old := s.subscribers.Load()
		next := make([]chan value.Traced, 0, len(*old))
		for _, c := range *old {
			if c != ch {
				next = append(next, c)
			}
		}
		if s.subscribers.CompareAndSwap(old, &next) {
			return len(next)
		}
	}
}

func (s *stream) fanOut(tv value.Traced) {
	for _, ch := range *s.subscribers.Load() {
		select {
		case ch <- tv:
		default:
		}
	}
}

// GracePeriod bounds how long an unsubscribed stream is kept alive in case
// a new subscriber arrives, per spec.md §4.4 step 3.
const GracePeriod = 2 * time.Second

// Broker is the attribute broker. Construct with New.
type Broker struct {
	mu sync.Mutex

	activeStreamIndex   map[uint64][]*stream
	attributeFinderIndex map[string][]FinderSpecification
	pipRegistry          map[string]PIPSpecification
	libraryMap           map[string][]string

	repo *repository.Repository

	// afterGrace lets tests substitute a synchronous stand-in for
	// time.AfterFunc.
	afterGrace func(d time.Duration, f func()) *time.Timer

	// afterTimeout backs armInitialTimeout; same test-substitution hook as
	// afterGrace, kept separate since the two timers serve unrelated ends.
	afterTimeout func(d time.Duration, f func()) *time.Timer
}

func New(repo *repository.Repository) *Broker {
	return &Broker{
		activeStreamIndex:    make(map[uint64][]*stream),
		attributeFinderIndex: make(map[string][]FinderSpecification),
		pipRegistry:          make(map[string]PIPSpecification),
		libraryMap:           make(map[string][]string),
		repo:                 repo,
		afterGrace:           time.AfterFunc,
		afterTimeout:         time.AfterFunc,
	}
}

// AttributeStream returns a channel of every subsequent emission for inv,
// plus a cancel func the caller must invoke when it stops consuming
// (spec.md §4.4 "attributeStream").
func (b *Broker) AttributeStream(inv Invocation) (ch <-chan value.Traced, cancel func()) {
	key := inv.hash()

	b.mu.Lock()
	if !inv.Fresh {
		if streams := b.activeStreamIndex[key]; len(streams) > 0 {
			s := streams[0]
			s.cancelGrace()
			sub := s.addSubscriber()
			b.mu.Unlock()
			return sub, b.cancelFunc(key, s, sub)
		}
	}

	spec, ok := b.selectFinderLocked(inv.AttributeName)
	s := newStream(inv)
	b.activeStreamIndex[key] = append(b.activeStreamIndex[key], s)
	b.mu.Unlock()

	sub := s.addSubscriber()
	b.connect(s, spec, ok, inv)
	return sub, b.cancelFunc(key, s, sub)
}

// selectFinderLocked implements the lookup order of spec.md §4.4 step 2:
// EXACT_MATCH first, else VARARGS_MATCH, else fall back to the repository.
func (b *Broker) selectFinderLocked(attributeName string) (FinderSpecification, bool) {
	var varargs *FinderSpecification
	for _, f := range b.attributeFinderIndex[attributeName] {
		if f.Match == ExactMatch {
			return f, true
		}
		if f.Match == VarargsMatch && varargs == nil {
			fc := f
			varargs = &fc
		}
	}
	if varargs != nil {
		return *varargs, true
	}
	return FinderSpecification{}, false
}

// connect wires s to either the selected PIP finder or the repository
// fallback, starting its goroutine pump.
func (b *Broker) connect(s *stream, spec FinderSpecification, hasFinder bool, inv Invocation) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.armInitialTimeout(b.afterTimeout)

	if hasFinder {
		go b.pumpFinder(ctx, s, spec, inv)
		return
	}
	go b.pumpRepository(ctx, s, inv)
}

// pumpFinder keeps s connected to spec.Invoke, reconnecting on upstream
// closure. A positive inv.PollInterval means spec.Invoke is a poll-style
// finder that closes its channel once it has nothing further to say right
// now: reconnection on that schedule is expected, so it costs no retry
// budget and uses no backoff. Without PollInterval, closure is treated as
// a failure bounded by inv.Retries with exponential backoff (spec.md §5
// "Timeouts").
func (b *Broker) pumpFinder(ctx context.Context, s *stream, spec FinderSpecification, inv Invocation) {
	defer func() {
		if r := recover(); r != nil {
			s.fanOut(value.NewTraced(value.NewError("attribute finder for %s panicked: %v", inv.AttributeName, r)))
		}
	}()
	retries := inv.Retries
	backoffDelay := inv.Backoff
	if backoffDelay <= 0 {
		backoffDelay = 100 * time.Millisecond
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = backoffDelay

	attempt := 0
	for {
		upstream := spec.Invoke(ctx, inv)
		for tv := range upstream {
			s.disarmInitialTimeout()
			s.fanOut(tv)
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		if inv.PollInterval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(inv.PollInterval):
			}
			continue
		}

		attempt++
		if retries >= 0 && attempt > retries {
			s.fanOut(value.NewTraced(value.ErrAttributeSourceExhausted(inv.AttributeName)))
			return
		}
		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (b *Broker) pumpRepository(ctx context.Context, s *stream, inv Invocation) {
	if b.repo == nil {
		s.disarmInitialTimeout()
		s.fanOut(value.NewTraced(value.Undefined))
		<-ctx.Done()
		return
	}
	key := repository.Key{Entity: inv.Entity, AttributeName: inv.AttributeName, Arguments: inv.Arguments}
	s.disarmInitialTimeout()
	s.fanOut(value.NewTraced(b.repo.Get(key)))
	ch, cancel := b.repo.Query(key)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			s.fanOut(value.NewTraced(v))
		}
	}
}

func (s *stream) cancelGrace() {
	s.graceMu.Lock()
	defer s.graceMu.Unlock()
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}

// cancelFunc builds the per-subscriber cancel closure: on last-subscriber
// departure it arms a grace timer rather than tearing the stream down
// immediately (spec.md §4.4 step 3).
func (b *Broker) cancelFunc(key uint64, s *stream, sub chan value.Traced) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			remaining := s.removeSubscriber(sub)
			if remaining > 0 {
				return
			}
			s.graceMu.Lock()
			s.graceTimer = b.afterGrace(GracePeriod, func() {
				b.mu.Lock()
				defer b.mu.Unlock()
				if len(*s.subscribers.Load()) > 0 {
					return
				}
				streams := b.activeStreamIndex[key]
				for i, cand := range streams {
					if cand == s {
						b.activeStreamIndex[key] = append(streams[:i], streams[i+1:]...)
						break
					}
				}
				s.cancel()
			})
			s.graceMu.Unlock()
		})
	}
}

// RegisterAttributeFinder adds spec to the finder index and reconnects any
// active stream that should now be served by it, without dropping
// subscribers (spec.md §4.4 "registerAttributeFinder", §8 "Hot-swap
// continuity"). Simultaneous EXACT_MATCH claims for the same attribute name
// are rejected rather than silently preferring iteration order (spec.md §9
// Open Question, resolved).
func (b *Broker) RegisterAttributeFinder(spec FinderSpecification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if spec.Match == ExactMatch {
		for _, existing := range b.attributeFinderIndex[spec.AttributeName] {
			if existing.Match == ExactMatch {
				return xerr.ErrAttributeBroker(
					"attribute %q already has an exact-match finder registered by %q",
					spec.AttributeName, existing.PIPName)
			}
		}
	}
	b.attributeFinderIndex[spec.AttributeName] = append(b.attributeFinderIndex[spec.AttributeName], spec)

	for _, streams := range b.activeStreamIndex {
		for _, s := range streams {
			if s.inv.AttributeName != spec.AttributeName {
				continue
			}
			if !b.shouldWinLocked(spec, s.inv) {
				continue
			}
			b.reconnectLocked(s, spec)
		}
	}
	return nil
}

// shouldWinLocked reports whether candidate should serve inv's active
// stream: EXACT_MATCH always wins; VARARGS_MATCH wins only if no
// EXACT_MATCH claim exists for the attribute name.
func (b *Broker) shouldWinLocked(candidate FinderSpecification, inv Invocation) bool {
	if candidate.Match == ExactMatch {
		return true
	}
	for _, f := range b.attributeFinderIndex[inv.AttributeName] {
		if f.Match == ExactMatch {
			return false
		}
	}
	return true
}

func (b *Broker) reconnectLocked(s *stream, spec FinderSpecification) {
	if s.cancel != nil {
		s.cancel()
	}
	b.connect(s, spec, true, s.inv)
}

// UnloadPolicyInformationPoint removes every finder registered by name,
// reconnecting affected streams to a remaining VARARGS_MATCH finder, or to
// the repository fallback if none remains (spec.md §4.4
// "unloadPolicyInformationPoint").
func (b *Broker) UnloadPolicyInformationPoint(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removedAttrs := map[string]bool{}
	for attr, finders := range b.attributeFinderIndex {
		kept := finders[:0:0]
		for _, f := range finders {
			if f.PIPName == name {
				removedAttrs[attr] = true
				continue
			}
			kept = append(kept, f)
		}
		if len(kept) == 0 {
			delete(b.attributeFinderIndex, attr)
		} else {
			b.attributeFinderIndex[attr] = kept
		}
	}
	delete(b.pipRegistry, name)

	for _, streams := range b.activeStreamIndex {
		for _, s := range streams {
			if !removedAttrs[s.inv.AttributeName] {
				continue
			}
			spec, ok := b.selectFinderLocked(s.inv.AttributeName)
			if s.cancel != nil {
				s.cancel()
			}
			b.connect(s, spec, ok, s.inv)
		}
	}
}

// LoadPolicyInformationPointLibrary performs the atomic library load
// described in spec.md §4.4: validation happens outside the lock, the
// collision re-check happens inside it, and any failure on the atomic path
// leaves the broker's state completely unchanged (spec.md §8 "Atomic
// library load").
func (b *Broker) LoadPolicyInformationPointLibrary(libraryName string, spec PIPSpecification) error {
	if libraryName == "" {
		return xerr.ErrAttributeBroker("library name must not be empty")
	}
	if spec.Name == "" {
		return xerr.ErrAttributeBroker("PIP specification must name a PIP")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.libraryMap[libraryName]; exists {
		return xerr.ErrAttributeBroker("library %q is already loaded", libraryName)
	}
	if _, exists := b.pipRegistry[spec.Name]; exists {
		return xerr.ErrAttributeBroker("PIP %q is already registered", spec.Name)
	}
	seen := map[string]bool{}
	for _, f := range spec.Finders {
		signature := f.AttributeName
		if seen[signature] {
			return xerr.ErrAttributeBroker("duplicate attribute signature %q within PIP %q", signature, spec.Name)
		}
		seen[signature] = true
		if f.Match == ExactMatch {
			for _, existing := range b.attributeFinderIndex[f.AttributeName] {
				if existing.Match == ExactMatch {
					return xerr.ErrAttributeBroker(
						"attribute %q already has an exact-match finder registered by %q",
						f.AttributeName, existing.PIPName)
				}
			}
		}
	}

	b.pipRegistry[spec.Name] = spec
	b.libraryMap[libraryName] = append(b.libraryMap[libraryName], spec.Name)
	for _, f := range spec.Finders {
		b.attributeFinderIndex[f.AttributeName] = append(b.attributeFinderIndex[f.AttributeName], f)
		for _, streams := range b.activeStreamIndex {
			for _, s := range streams {
				if s.inv.AttributeName == f.AttributeName && b.shouldWinLocked(f, s.inv) {
					b.reconnectLocked(s, f)
				}
			}
		}
	}
	return nil
}

// GetLoadedLibraryNames returns every currently loaded library name.
func (b *Broker) GetLoadedLibraryNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.libraryMap))
	for name := range b.libraryMap {
		names = append(names, name)
	}
	return names
}
