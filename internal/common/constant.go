package common

// Metadata keys used by the client. They live in the metadata table,
// separate from the library tables.
const (
	DeviceIDKey    = "readersync.device_id"
	SyncCodeKey    = "readersync.sync_code"
	SyncStatusKey  = "readersync.status"
	GroupKeyPrefix = "readersync.group."
)

// SyncCodeAlphabet is the set of characters pairing codes are drawn from.
// 0/O and 1/I are left out so codes survive being read aloud or retyped.
const SyncCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// SyncCodeLength is the fixed length of a pairing code.
const SyncCodeLength = 6
