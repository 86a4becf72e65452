package network

import "time"

const (
	TransportWiFi     = "wifi"
	TransportEthernet = "ethernet"
	TransportCellular = "cellular"
	TransportNone     = "none"
	TransportUnknown  = "unknown"
)

// Snapshot is one observation of connectivity. Connected does not imply reachable
// (captive portals, dead upstreams), so sync gates on Online.
type Snapshot struct {
	IsConnected   bool      `json:"is_connected"`
	IsReachable   bool      `json:"is_reachable"`
	TransportType string    `json:"transport_type"`
	ObservedAt    time.Time `json:"observed_at"`
}

func (s Snapshot) Online() bool {
	return s.IsConnected && s.IsReachable
}

// Offline is the fail-closed snapshot used when the platform cannot be queried.
func Offline(at time.Time) Snapshot {
	return Snapshot{TransportType: TransportNone, ObservedAt: at}
}
