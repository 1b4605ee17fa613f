package adapter

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

// noopAdapter never touches a device. It is used for wiring tests and as
// the default when no southbound type is configured.
type noopAdapter struct{}

func newNoopAdapter() *noopAdapter {
	return &noopAdapter{}
}

func (a *noopAdapter) ValidateIntent(intent *types.Intent) *types.ApplyResult {
	return checkIntent(intent)
}

func (a *noopAdapter) ApplyIntent(_ context.Context, device *types.DeviceSpec, _ *types.Credentials, intent *types.Intent, opts ApplyOptions) (*types.ApplyResult, error) {
	action := "apply"
	if opts.DryRun {
		action = "dry-run"
	}
	log.Debugf("[noop] %s intent to %s at %s", action, device, device.Endpoint)
	return &types.ApplyResult{
		OK:      true,
		Changed: !opts.DryRun,
		Detail:  fmt.Sprintf("[noop] %s intent to %s at %s keys=%v", action, device, device.Endpoint, intent.Keys()),
		Facts:   platformFacts(device),
	}, nil
}

func (a *noopAdapter) ReadFacts(_ context.Context, device *types.DeviceSpec, _ *types.Credentials) (*types.ApplyResult, error) {
	return &types.ApplyResult{
		OK:     true,
		Detail: fmt.Sprintf("[noop] read facts from %s at %s", device, device.Endpoint),
		Facts:  platformFacts(device),
	}, nil
}

func platformFacts(device *types.DeviceSpec) map[string]string {
	facts := map[string]string{
		"vendor": device.Platform.Vendor,
		"os":     device.Platform.OS,
	}
	if device.Platform.Model != "" {
		facts["model"] = device.Platform.Model
	}
	return facts
}
