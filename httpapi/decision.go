// SPDX-License-Identifier: Apache-2.0
package httpapi

import (
	"encoding/json"

	"github.com/sentrie-sh/saplpdp/pdp"
	"github.com/sentrie-sh/saplpdp/value"
)

func toEnvelope(d pdp.AuthorizationDecision) (DecisionEnvelope, error) {
	env := DecisionEnvelope{Decision: d.Decision.String()}
	var err error
	if env.Obligations, err = marshalValues(d.Obligations); err != nil {
		return DecisionEnvelope{}, err
	}
	if env.Advice, err = marshalValues(d.Advice); err != nil {
		return DecisionEnvelope{}, err
	}
	if d.Resource != nil && !value.IsUndefined(d.Resource) {
		if env.Resource, err = value.MarshalJSON(d.Resource); err != nil {
			return DecisionEnvelope{}, err
		}
	}
	if d.Err != nil {
		env.Error = d.Err.Message
	}
	return env, nil
}

func marshalValues(vs []value.Value) (json.RawMessage, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	raw := make([]json.RawMessage, len(vs))
	for i, v := range vs {
		b, err := value.MarshalJSON(v)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return json.Marshal(raw)
}
