package ports

import (
	"context"

	"github.com/avatarctic/offline-sync/internal/core/domain/network"
)

// ConnectivityProbe abstracts the platform connectivity API.
// An error is treated by callers as "not connected".
type ConnectivityProbe interface {
	Probe(ctx context.Context) (network.Snapshot, error)
}

// NetworkMonitor owns the authoritative connectivity snapshot.
type NetworkMonitor interface {
	// Current returns a copy of the latest snapshot. known=false until the first observation.
	Current() (snap network.Snapshot, known bool)
	// Subscribe registers a listener invoked once per online/offline transition.
	Subscribe(listener func(network.Snapshot)) (unsubscribe func())
}
