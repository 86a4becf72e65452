package connectivity

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/network"
	"github.com/avatarctic/offline-sync/internal/core/ports"
)

// Link is the subset of a network interface the probe looks at.
type Link struct {
	Name     string
	Up       bool
	Loopback bool
	HasAddr  bool
}

// HTTPProbe derives IsConnected from the host's interfaces and IsReachable from an HTTP
// request to a known endpoint, typically a generate_204 URL.
type HTTPProbe struct {
	url            string
	expectedStatus int
	client         *http.Client
	links          func() ([]Link, error)
}

type HTTPProbeConfig struct {
	URL            string
	ExpectedStatus int
	Timeout        time.Duration
}

func NewHTTPProbe(cfg *HTTPProbeConfig) *HTTPProbe {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProbe{
		url:            cfg.URL,
		expectedStatus: cfg.ExpectedStatus,
		client:         &http.Client{Timeout: timeout},
		links:          systemLinks,
	}
}

// WithLinks replaces interface discovery, mainly for tests.
func (p *HTTPProbe) WithLinks(fn func() ([]Link, error)) *HTTPProbe {
	p.links = fn
	return p
}

func (p *HTTPProbe) Probe(ctx context.Context) (network.Snapshot, error) {
	links, err := p.links()
	if err != nil {
		return network.Snapshot{}, fmt.Errorf("failed to list interfaces: %w", err)
	}
	snap := network.Snapshot{TransportType: network.TransportNone, ObservedAt: time.Now()}
	for _, l := range links {
		if !l.Up || l.Loopback || !l.HasAddr {
			continue
		}
		snap.IsConnected = true
		t := transportFor(l.Name)
		if snap.TransportType == network.TransportNone || rank(t) > rank(snap.TransportType) {
			snap.TransportType = t
		}
	}
	if !snap.IsConnected {
		return snap, nil
	}
	snap.IsReachable = p.reachable(ctx)
	return snap, nil
}

func (p *HTTPProbe) reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if p.expectedStatus > 0 {
		return resp.StatusCode == p.expectedStatus
	}
	return resp.StatusCode < http.StatusInternalServerError
}

func systemLinks() ([]Link, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Link, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, _ := iface.Addrs()
		out = append(out, Link{
			Name:     iface.Name,
			Up:       iface.Flags&net.FlagUp != 0,
			Loopback: iface.Flags&net.FlagLoopback != 0,
			HasAddr:  len(addrs) > 0,
		})
	}
	return out, nil
}

// transportFor guesses the transport from common interface naming schemes.
func transportFor(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.HasPrefix(n, "wl"), strings.HasPrefix(n, "wifi"), strings.HasPrefix(n, "ath"):
		return network.TransportWiFi
	case strings.HasPrefix(n, "eth"), strings.HasPrefix(n, "en"):
		return network.TransportEthernet
	case strings.HasPrefix(n, "wwan"), strings.HasPrefix(n, "rmnet"), strings.HasPrefix(n, "ccmni"), strings.HasPrefix(n, "pdp_ip"):
		return network.TransportCellular
	}
	return network.TransportUnknown
}

// rank prefers the transport a user would consider primary.
func rank(t string) int {
	switch t {
	case network.TransportEthernet:
		return 4
	case network.TransportWiFi:
		return 3
	case network.TransportCellular:
		return 2
	case network.TransportUnknown:
		return 1
	}
	return 0
}

var _ ports.ConnectivityProbe = (*HTTPProbe)(nil)
