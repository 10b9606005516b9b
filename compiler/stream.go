// SPDX-License-Identifier: Apache-2.0
package compiler

import (
	"github.com/sentrie-sh/saplpdp/stratum"
	"github.com/sentrie-sh/saplpdp/value"
)

// combineLatest implements the reactive combinator semantics of spec.md
// §4.3: each upstream's latest value is combined with the latest of every
// sibling stream; if any upstream emits an Error value, the combined
// position emits that Error (the combination never terminates because of
// it); when an upstream completes, the combined position retains its last
// value; the combined stream itself completes only once every upstream has
// completed.
func combineLatest(upstreams []stratum.TracedStream, combine func(latest []value.Traced) value.Traced) stratum.TracedStream {
	out := make(chan value.Traced, 1)

	go func() {
		defer close(out)

		n := len(upstreams)
		if n == 0 {
			return
		}
		latest := make([]value.Traced, n)
		have := make([]bool, n)
		open := make([]bool, n)
		for i := range open {
			open[i] = true
		}
		remaining := n

		type update struct {
			idx int
			tv  value.Traced
			ok  bool
		}
		updates := make(chan update)
		for i, up := range upstreams {
			i, up := i, up
			go func() {
				for tv := range up {
					updates <- update{idx: i, tv: tv, ok: true}
				}
				updates <- update{idx: i, ok: false}
			}()
		}

		for remaining > 0 {
			u := <-updates
			if !u.ok {
				if open[u.idx] {
					open[u.idx] = false
					remaining--
				}
				continue
			}
			latest[u.idx] = u.tv
			have[u.idx] = true

			ready := true
			for i := range upstreams {
				if !have[i] && open[i] {
					ready = false
					break
				}
			}
			if ready {
				out <- combine(latest)
			}
		}
	}()

	return out
}

// CombineStreams subscribes to every node against ctx (upgrading any
// non-Stream node to a single-element stream) and yields the combined
// tuple of latest values on every combineLatest tick. Exported so other
// packages (e.g. policy, for a StreamVoter whose body depends on an
// attribute reference) can react to the same combinator semantics the
// compiler itself uses for composite expressions.
func CombineStreams(ctx stratum.EvaluationContext, nodes []stratum.Node) <-chan []value.Value {
	upstreams := make([]stratum.TracedStream, len(nodes))
	for i, n := range nodes {
		if so, ok := n.(stratum.StreamOperator); ok {
			upstreams[i] = so.Stream(ctx)
		} else {
			upstreams[i] = singleValueStream(value.NewTraced(Evaluate(n, ctx)))
		}
	}
	combined := combineLatest(upstreams, func(latest []value.Traced) value.Traced {
		vals := make([]value.Value, len(latest))
		for i, tv := range latest {
			vals[i] = tv.Value
		}
		return value.NewTraced(value.NewArray(vals...))
	})
	out := make(chan []value.Value)
	go func() {
		defer close(out)
		for tv := range combined {
			arr := tv.Value.(*value.Array)
			out <- arr.Elements
		}
	}()
	return out
}

// singleValueStream wraps a single value.Traced as a one-element,
// immediately-completing stream, used when a StreamOperator composite has
// no live upstream to combine (a folded constant nested in an otherwise
// streaming context).
func singleValueStream(tv value.Traced) stratum.TracedStream {
	out := make(chan value.Traced, 1)
	out <- tv
	close(out)
	return out
}
