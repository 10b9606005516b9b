// SPDX-License-Identifier: Apache-2.0
package httpapi

import (
	"context"
	"sync"

	"github.com/sentrie-sh/saplpdp/pdp"
)

type identifiableEmission struct {
	id       string
	decision pdp.AuthorizationDecision
}

func fanIn(id string, decisions <-chan pdp.AuthorizationDecision) <-chan identifiableEmission {
	out := make(chan identifiableEmission)
	go func() {
		defer close(out)
		for d := range decisions {
			out <- identifiableEmission{id: id, decision: d}
		}
	}()
	return out
}

// emissionStream names one subscription's fanned-in emission channel.
type emissionStream struct {
	id string
	ch <-chan identifiableEmission
}

// mergeEmissions fans every per-subscription emission stream into one
// channel, closing it once every input stream has closed or ctx is done.
func mergeEmissions(ctx context.Context, streams []emissionStream) <-chan identifiableEmission {
	out := make(chan identifiableEmission)
	var wg sync.WaitGroup
	wg.Add(len(streams))
	for _, s := range streams {
		s := s
		go func() {
			defer wg.Done()
			for em := range s.ch {
				select {
				case out <- em:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
