// SPDX-License-Identifier: Apache-2.0
package httpapi

import (
	"encoding/json"

	"github.com/sentrie-sh/saplpdp/value"
)

// AuthorizationSubscription is the wire form of spec.md §6's subscription:
// subject/action/resource are required, environment and secrets are
// optional. Every field round-trips through value.MarshalJSON /
// value.UnmarshalJSON rather than plain JSON, so Undefined and Error can
// travel the wire exactly as losslessly as any other Value variant - the
// HTTP surface gets no exception from that requirement.
type AuthorizationSubscription struct {
	Subject     value.Value
	Action      value.Value
	Resource    value.Value
	Environment value.Value
	Secrets     value.Value
}

type wireSubscription struct {
	Subject     json.RawMessage `json:"subject"`
	Action      json.RawMessage `json:"action"`
	Resource    json.RawMessage `json:"resource"`
	Environment json.RawMessage `json:"environment,omitempty"`
	Secrets     json.RawMessage `json:"secrets,omitempty"`
}

func (s *AuthorizationSubscription) UnmarshalJSON(data []byte) error {
	var w wireSubscription
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var err error
	if s.Subject, err = decodeField(w.Subject); err != nil {
		return err
	}
	if s.Action, err = decodeField(w.Action); err != nil {
		return err
	}
	if s.Resource, err = decodeField(w.Resource); err != nil {
		return err
	}
	if s.Environment, err = decodeField(w.Environment); err != nil {
		return err
	}
	if s.Secrets, err = decodeField(w.Secrets); err != nil {
		return err
	}
	return nil
}

func decodeField(raw json.RawMessage) (value.Value, error) {
	if len(raw) == 0 {
		return value.Undefined, nil
	}
	return value.UnmarshalJSON(raw)
}

func (s AuthorizationSubscription) MarshalJSON() ([]byte, error) {
	w := wireSubscription{}
	var err error
	if w.Subject, err = encodeField(s.Subject); err != nil {
		return nil, err
	}
	if w.Action, err = encodeField(s.Action); err != nil {
		return nil, err
	}
	if w.Resource, err = encodeField(s.Resource); err != nil {
		return nil, err
	}
	if w.Environment, err = encodeField(s.Environment); err != nil {
		return nil, err
	}
	if w.Secrets, err = encodeField(s.Secrets); err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func encodeField(v value.Value) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return value.MarshalJSON(v)
}

// ToValue folds the subscription's named fields into the *value.Object the
// compiled Voters read the subject/action/resource/environment/secrets
// fields off of at evaluation time.
func (s AuthorizationSubscription) ToValue() value.Value {
	obj := value.NewObject()
	obj.Set("subject", orUndefined(s.Subject))
	obj.Set("action", orUndefined(s.Action))
	obj.Set("resource", orUndefined(s.Resource))
	obj.Set("environment", orUndefined(s.Environment))
	obj.Set("secrets", orUndefined(s.Secrets))
	return obj
}

func orUndefined(v value.Value) value.Value {
	if v == nil {
		return value.Undefined
	}
	return v
}

// IdentifiableAuthorizationDecision tags a multi-subscription stream
// element with the subscriptionId it answers (spec.md §6).
type IdentifiableAuthorizationDecision struct {
	SubscriptionID string           `json:"subscriptionId"`
	Decision       DecisionEnvelope `json:"decision"`
}

// DecisionEnvelope is the wire form of pdp.AuthorizationDecision.
type DecisionEnvelope struct {
	Decision    string          `json:"decision"`
	Obligations json.RawMessage `json:"obligations,omitempty"`
	Advice      json.RawMessage `json:"advice,omitempty"`
	Resource    json.RawMessage `json:"resource,omitempty"`
	Error       string          `json:"error,omitempty"`
}
