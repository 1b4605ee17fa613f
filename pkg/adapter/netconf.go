package adapter

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf"
	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf/driver/scrapligo"
	"github.com/iptecharch/deviceconfig-controller/pkg/config"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

// DialFunc opens a connected protocol driver towards one device. Swapped
// out in tests for an in-memory fake.
type DialFunc func(cfg *config.SBI) (netconf.Driver, error)

func scrapligoDial(cfg *config.SBI) (netconf.Driver, error) {
	return scrapligo.NewScrapligoNetconfTarget(cfg)
}

// netconfAdapter drives a transactional netconf session per apply. One
// session never outlives a single ApplyIntent or ReadFacts call.
type netconfAdapter struct {
	cfg  *config.SBI
	dial DialFunc
}

func newNetconfAdapter(cfg *config.SBI) *netconfAdapter {
	return &netconfAdapter{
		cfg:  cfg,
		dial: scrapligoDial,
	}
}

func (a *netconfAdapter) ValidateIntent(intent *types.Intent) *types.ApplyResult {
	return checkIntent(intent)
}

func (a *netconfAdapter) ApplyIntent(ctx context.Context, device *types.DeviceSpec, creds *types.Credentials, intent *types.Intent, opts ApplyOptions) (*types.ApplyResult, error) {
	if res := checkIntent(intent); !res.OK {
		return res, nil
	}
	cd, err := netconf.BuildChangeDocument(device.Platform, intent)
	if err != nil {
		return &types.ApplyResult{OK: false, Detail: err.Error()}, nil
	}
	// the last point at which this pass may be abandoned: once the session
	// locks the datastore it runs to a terminal state
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := a.open(device, creds)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	mode := netconf.ModeMerge
	if opts.Replace {
		mode = netconf.ModeReplace
	}
	res, err := sess.Apply(cd, mode, opts.DryRun)
	if err != nil {
		return nil, err
	}
	if res.OK {
		res.Facts = platformFacts(device)
	}
	return res, nil
}

func (a *netconfAdapter) ReadFacts(ctx context.Context, device *types.DeviceSpec, creds *types.Credentials) (*types.ApplyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := a.open(device, creds)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	caps, err := sess.Capabilities()
	if err != nil {
		return nil, err
	}
	facts := platformFacts(device)
	facts["capabilities"] = strconv.Itoa(len(caps))
	facts["candidate"] = strconv.FormatBool(sess.HasCapability("capability:candidate"))
	facts["confirmed-commit"] = strconv.FormatBool(sess.HasCapability("capability:confirmed-commit"))
	facts["validate"] = strconv.FormatBool(sess.HasCapability("capability:validate"))

	if hostname := a.readHostname(sess, device); hostname != "" {
		facts["hostname"] = hostname
	}
	return &types.ApplyResult{
		OK:     true,
		Detail: fmt.Sprintf("facts read from %s", device),
		Facts:  facts,
	}, nil
}

// readHostname fetches the device's current hostname with a subtree filter
// derived from the platform's hostname path. Best effort: a device that
// rejects the filter just yields no hostname fact.
func (a *netconfAdapter) readHostname(sess *netconf.Session, device *types.DeviceSpec) string {
	cd, err := netconf.BuildChangeDocument(device.Platform, &types.Intent{Hostname: "x"})
	if err != nil {
		return ""
	}
	filter, err := cd.Filter()
	if err != nil {
		return ""
	}
	resp, err := sess.ReadConfig(netconf.DatastoreRunning, filter)
	if err != nil {
		log.Debugf("%s: hostname read failed: %v", device, err)
		return ""
	}
	return resp.FindText("//hostname")
}

func (a *netconfAdapter) open(device *types.DeviceSpec, creds *types.Credentials) (*netconf.Session, error) {
	drv, err := a.dial(a.sbiFor(device, creds))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnect, device, err)
	}
	return netconf.NewSession(drv, device.String(),
		netconf.WithCommitConfirmTimeout(a.cfg.NetconfOptions.CommitConfirmTimeout),
	), nil
}

// sbiFor overlays the device's resolved endpoint and credentials onto the
// configured southbound defaults.
func (a *netconfAdapter) sbiFor(device *types.DeviceSpec, creds *types.Credentials) *config.SBI {
	cfg := a.cfg.DeepCopy()
	cfg.Address = device.Endpoint.Address
	if device.Endpoint.Port != 0 {
		cfg.Port = device.Endpoint.Port
	}
	if creds != nil {
		cfg.Credentials = &config.Creds{
			Username: creds.Username,
			Password: creds.Password,
		}
	}
	return cfg
}
