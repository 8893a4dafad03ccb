package models

import "encoding/json"

// GroupRecord is what a backend keeps for one pairing code.
// Data holds the encoded envelope and is empty until the first push.
type GroupRecord struct {
	SyncCode      string           `json:"syncCode"`
	OwnerDeviceID string           `json:"ownerDeviceId"`
	Data          json.RawMessage  `json:"data,omitempty"`
	Devices       map[string]int64 `json:"devices,omitempty"`
	Revision      int64            `json:"revision"`
	CreatedAt     int64            `json:"createdAt"`
	UpdatedAt     int64            `json:"updatedAt,omitempty"`
}

// NewGroupRecord returns an empty group owned by deviceID.
func NewGroupRecord(code, deviceID string, now int64) *GroupRecord {
	return &GroupRecord{
		SyncCode:      code,
		OwnerDeviceID: deviceID,
		Devices:       map[string]int64{deviceID: now},
		CreatedAt:     now,
	}
}

// Touch records that deviceID talked to the group at now.
func (g *GroupRecord) Touch(deviceID string, now int64) {
	if deviceID == "" {
		return
	}
	if g.Devices == nil {
		g.Devices = make(map[string]int64)
	}
	g.Devices[deviceID] = now
}

// DeviceCount is the number of distinct devices that have used the group,
// never less than one.
func (g *GroupRecord) DeviceCount() int {
	if g == nil || len(g.Devices) == 0 {
		return 1
	}
	return len(g.Devices)
}

// Envelope decodes Data. See DecodeEnvelope for the error contract.
func (g *GroupRecord) Envelope() (*Envelope, error) {
	return DecodeEnvelope(g.Data)
}

// Clone returns a deep copy, so stores can hand out records safely.
func (g *GroupRecord) Clone() *GroupRecord {
	c := *g
	if g.Data != nil {
		c.Data = append(json.RawMessage(nil), g.Data...)
	}
	if g.Devices != nil {
		c.Devices = make(map[string]int64, len(g.Devices))
		for k, v := range g.Devices {
			c.Devices[k] = v
		}
	}
	return &c
}
