package adapter

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"

	"github.com/iptecharch/deviceconfig-controller/pkg/config"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

// ErrConnect marks a failed transport handshake or authentication towards
// a device. Retryable with backoff by the caller; never retried in here.
var ErrConnect = errors.New("device connect failed")

// ApplyOptions modify how an intent is applied.
type ApplyOptions struct {
	// DryRun computes a preview without staging or committing anything.
	DryRun bool
	// Replace applies the intent with replace instead of merge semantics.
	Replace bool
}

// Adapter is the boundary between the reconciler and a device. An adapter
// translates the abstract intent into device operations; the reconciler
// never touches the wire itself.
//
// Side effects: only ApplyIntent with DryRun=false may change device state
// (and report Changed=true). ValidateIntent performs no device I/O at all.
type Adapter interface {
	// ValidateIntent checks the intent structurally, without any device
	// contact.
	ValidateIntent(intent *types.Intent) *types.ApplyResult
	// ApplyIntent applies the desired intent to the device.
	ApplyIntent(ctx context.Context, device *types.DeviceSpec, creds *types.Credentials, intent *types.Intent, opts ApplyOptions) (*types.ApplyResult, error)
	// ReadFacts reads basic facts/state from the device (reachability,
	// capabilities, current hostname).
	ReadFacts(ctx context.Context, device *types.DeviceSpec, creds *types.Credentials) (*types.ApplyResult, error)
}

// New selects the adapter implementation for the configured southbound
// type. The gRPC dial options only apply to the gnmi adapter.
func New(cfg *config.SBI, gnmiOpts ...grpc.DialOption) (Adapter, error) {
	switch cfg.Type {
	case "netconf":
		return newNetconfAdapter(cfg), nil
	case "gnmi":
		return newGNMIAdapter(cfg, gnmiOpts...), nil
	case "noop", "":
		return newNoopAdapter(), nil
	}
	return nil, fmt.Errorf("unknown southbound adapter type %q", cfg.Type)
}
