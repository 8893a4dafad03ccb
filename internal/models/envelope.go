package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CurrentEnvelopeVersion is written into every envelope this build pushes.
const CurrentEnvelopeVersion = 1

// ErrMalformedEnvelope is returned by DecodeEnvelope for data that cannot
// be used. Callers treat it as "no data yet".
var ErrMalformedEnvelope = errors.New("malformed sync envelope")

// Envelope is the unit pushed to and pulled from a group.
// Every push replaces the whole envelope.
type Envelope struct {
	Version      int     `json:"version"`
	SyncCode     string  `json:"syncCode"`
	DeviceID     string  `json:"deviceId"`
	LastSyncedAt int64   `json:"lastSyncedAt"`
	Payload      Dataset `json:"data"`
}

// NewEnvelope stamps payload with the current version, the writer and the
// time of the push.
func NewEnvelope(code, deviceID string, now int64, payload Dataset) *Envelope {
	payload.Normalize()
	return &Envelope{
		Version:      CurrentEnvelopeVersion,
		SyncCode:     code,
		DeviceID:     deviceID,
		LastSyncedAt: now,
		Payload:      payload,
	}
}

// Encode returns the JSON form stored by backends.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a stored envelope. Empty input, JSON that is not an
// object and envelopes without a version all yield ErrMalformedEnvelope.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedEnvelope)
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if e.Version <= 0 {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedEnvelope)
	}
	e.Payload.Normalize()
	return &e, nil
}
