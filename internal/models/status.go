package models

// SyncStatus is the snapshot of sync state shown to the user.
// Error is empty after a successful operation.
type SyncStatus struct {
	Enabled      bool   `json:"enabled"`
	SyncCode     string `json:"syncCode,omitempty"`
	LastSyncedAt int64  `json:"lastSyncedAt,omitempty"`
	IsSyncing    bool   `json:"isSyncing"`
	Error        string `json:"error,omitempty"`
	DeviceCount  int    `json:"deviceCount"`
}

// PersistedStatus is the part of SyncStatus that survives restarts.
type PersistedStatus struct {
	LastSyncedAt int64 `json:"lastSyncedAt,omitempty"`
	DeviceCount  int   `json:"deviceCount"`
}
