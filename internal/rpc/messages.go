package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type CreateGroupRequest struct {
	Code     string `json:"code"`
	DeviceID string `json:"deviceId"`
}

// GroupSnapshot is the GetGroup answer. Envelope is omitted when the group
// has no usable data; Revision is empty when the group does not exist.
type GroupSnapshot struct {
	Envelope    json.RawMessage `json:"envelope,omitempty"`
	Revision    string          `json:"revision"`
	DeviceCount int             `json:"deviceCount"`
}

type PutGroupRequest struct {
	Code     string          `json:"code"`
	Envelope json.RawMessage `json:"envelope"`
	Revision string          `json:"revision"`
}

type PutGroupResponse struct {
	Revision    string `json:"revision"`
	DeviceCount int    `json:"deviceCount"`
}

// Pack encodes v as a BytesValue.
func Pack(v any) (*wrapperspb.BytesValue, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return wrapperspb.Bytes(b), nil
}

// Unpack decodes a BytesValue produced by Pack into v.
func Unpack(in *wrapperspb.BytesValue, v any) error {
	if in == nil || len(in.GetValue()) == 0 {
		return fmt.Errorf("decode %T: empty message", v)
	}
	if err := json.Unmarshal(in.GetValue(), v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
