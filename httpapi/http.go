// SPDX-License-Identifier: Apache-2.0
package httpapi

import (
	"bufio"
	"encoding/json"
	"net/http"

	"github.com/sentrie-sh/saplpdp/compiler"
)

func (a *API) handleDecision(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	var sub AuthorizationSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid subscription", err.Error())
		return
	}

	ctx := compiler.NewEvaluationContext(sub.ToValue())
	decision := a.pdp.Decide(ctx)
	env, err := toEnvelope(decision)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "failed to encode decision", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(env)
}

func (a *API) handleMultiDecision(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	var subs map[string]AuthorizationSubscription
	if err := json.NewDecoder(r.Body).Decode(&subs); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid subscription map", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "streaming unsupported", "response writer cannot flush")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	bw := bufio.NewWriter(w)

	goCtx := r.Context()
	streams := make([]emissionStream, 0, len(subs))
	for id, sub := range subs {
		id, sub := id, sub
		ctx := compiler.NewEvaluationContext(sub.ToValue())
		streams = append(streams, emissionStream{id: id, ch: fanIn(id, a.pdp.DecisionStream(goCtx, ctx))})
	}

	merged := mergeEmissions(goCtx, streams)
	for em := range merged {
		env, err := toEnvelope(em.decision)
		if err != nil {
			continue
		}
		line, err := json.Marshal(IdentifiableAuthorizationDecision{SubscriptionID: em.id, Decision: env})
		if err != nil {
			continue
		}
		bw.Write(line)
		bw.WriteByte('\n')
		bw.Flush()
		flusher.Flush()
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "UP"})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
