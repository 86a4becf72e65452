package status

import "time"

// Status is the consolidated view pushed to observers, e.g. an offline banner.
// Known is false until the network monitor produced its first snapshot.
type Status struct {
	Known          bool       `json:"known"`
	IsConnected    bool       `json:"is_connected"`
	IsReachable    bool       `json:"is_reachable"`
	ConnectionType string     `json:"connection_type"`
	QueueLength    int        `json:"queue_length"`
	CacheBytes     int64      `json:"cache_bytes"`
	CacheItems     int        `json:"cache_items"`
	Syncing        bool       `json:"syncing"`
	LastSyncTime   *time.Time `json:"last_sync_time,omitempty"`
}

// Online mirrors network.Snapshot.Online for the composed view.
func (s Status) Online() bool {
	return s.Known && s.IsConnected && s.IsReachable
}
