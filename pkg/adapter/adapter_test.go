package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf"
	nctypes "github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf/types"
	"github.com/iptecharch/deviceconfig-controller/pkg/config"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

func sbi(typ string) *config.SBI {
	return &config.SBI{
		Type:           typ,
		NetconfOptions: &config.SBINetconfOptions{CommitConfirmTimeout: 30 * time.Second},
		Timeout:        10 * time.Second,
	}
}

func testDevice() *types.DeviceSpec {
	return &types.DeviceSpec{
		Name:      "r1",
		Namespace: "default",
		Endpoint:  types.Endpoint{Address: "10.0.0.1", Port: 830},
		Platform:  types.Platform{Vendor: "cisco", OS: "ios-xe", Model: "c8000v"},
		Transport: types.TransportNetconf,
	}
}

func TestNewAdapterSelection(t *testing.T) {
	tests := []struct {
		typ     string
		want    string
		wantErr bool
	}{
		{typ: "netconf", want: "*adapter.netconfAdapter"},
		{typ: "gnmi", want: "*adapter.gnmiAdapter"},
		{typ: "noop", want: "*adapter.noopAdapter"},
		{typ: "", want: "*adapter.noopAdapter"},
		{typ: "restconf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run("type "+tt.typ, func(t *testing.T) {
			a, err := New(sbi(tt.typ))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			// the concrete type decides the southbound protocol
			if got := typeName(a); got != tt.want {
				t.Errorf("New() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(a Adapter) string {
	switch a.(type) {
	case *netconfAdapter:
		return "*adapter.netconfAdapter"
	case *gnmiAdapter:
		return "*adapter.gnmiAdapter"
	case *noopAdapter:
		return "*adapter.noopAdapter"
	}
	return "unknown"
}

func TestNoopAdapter(t *testing.T) {
	a := newNoopAdapter()
	intent := &types.Intent{Hostname: "r1"}

	res, err := a.ApplyIntent(context.Background(), testDevice(), nil, intent, ApplyOptions{})
	if err != nil {
		t.Fatalf("ApplyIntent() error = %v", err)
	}
	if !res.OK || !res.Changed {
		t.Errorf("ApplyIntent() = %+v, want applied and changed", res)
	}
	if res.Facts["vendor"] != "cisco" || res.Facts["model"] != "c8000v" {
		t.Errorf("Facts = %v, want platform facts", res.Facts)
	}

	res, err = a.ApplyIntent(context.Background(), testDevice(), nil, intent, ApplyOptions{DryRun: true})
	if err != nil {
		t.Fatalf("ApplyIntent() error = %v", err)
	}
	if res.Changed {
		t.Errorf("dry-run ApplyIntent() Changed = true")
	}
}

// stubDriver is the minimal driver for netconf adapter tests; the session
// protocol itself is covered in the netconf package.
type stubDriver struct {
	caps   []string
	config string
	ops    []string
}

func (f *stubDriver) do(op string) { f.ops = append(f.ops, op) }

func (f *stubDriver) Capabilities() []string { return f.caps }

func (f *stubDriver) Get(string) (*nctypes.NetconfResponse, error) {
	f.do("get")
	return f.resp(), nil
}

func (f *stubDriver) GetConfig(string, string) (*nctypes.NetconfResponse, error) {
	f.do("get-config")
	return f.resp(), nil
}

func (f *stubDriver) EditConfig(string, string) (*nctypes.NetconfResponse, error) {
	f.do("edit-config")
	return f.resp(), nil
}

func (f *stubDriver) Lock(string) (*nctypes.NetconfResponse, error) {
	f.do("lock")
	return f.resp(), nil
}

func (f *stubDriver) Unlock(string) (*nctypes.NetconfResponse, error) {
	f.do("unlock")
	return f.resp(), nil
}

func (f *stubDriver) Validate(string) (*nctypes.NetconfResponse, error) {
	f.do("validate")
	return f.resp(), nil
}

func (f *stubDriver) Commit() error { f.do("commit"); return nil }

func (f *stubDriver) CommitConfirmed(time.Duration) error {
	f.do("commit-confirmed")
	return nil
}

func (f *stubDriver) Discard() error { f.do("discard"); return nil }
func (f *stubDriver) Close() error   { f.do("close"); return nil }
func (f *stubDriver) IsAlive() bool  { return true }

func (f *stubDriver) resp() *nctypes.NetconfResponse {
	doc := etree.NewDocument()
	_ = doc.ReadFromString(f.config)
	return nctypes.NewNetconfResponse(doc)
}

func testNetconfAdapter(drv *stubDriver, dialErr error) *netconfAdapter {
	a := newNetconfAdapter(sbi("netconf"))
	a.dial = func(cfg *config.SBI) (netconf.Driver, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return drv, nil
	}
	return a
}

func TestNetconfAdapterApplyIntent(t *testing.T) {
	drv := &stubDriver{caps: []string{
		"urn:ietf:params:netconf:capability:candidate:1.0",
	}}
	a := testNetconfAdapter(drv, nil)

	res, err := a.ApplyIntent(context.Background(), testDevice(), nil, &types.Intent{Hostname: "r1"}, ApplyOptions{})
	if err != nil {
		t.Fatalf("ApplyIntent() error = %v", err)
	}
	if !res.OK || !res.Changed {
		t.Fatalf("ApplyIntent() = %+v, want applied", res)
	}
	if res.Facts["vendor"] != "cisco" {
		t.Errorf("Facts = %v, want platform facts attached", res.Facts)
	}
	last := drv.ops[len(drv.ops)-1]
	if last != "close" {
		t.Errorf("last op = %s, session must be closed", last)
	}
}

func TestNetconfAdapterRejectsBadIntent(t *testing.T) {
	drv := &stubDriver{}
	a := testNetconfAdapter(drv, nil)

	res, err := a.ApplyIntent(context.Background(), testDevice(), nil, &types.Intent{Hostname: "bad_name"}, ApplyOptions{})
	if err != nil {
		t.Fatalf("ApplyIntent() error = %v", err)
	}
	if res.OK {
		t.Fatalf("ApplyIntent() accepted an invalid intent")
	}
	if len(drv.ops) != 0 {
		t.Errorf("ops = %v, invalid intents must not reach the device", drv.ops)
	}
}

func TestNetconfAdapterConnectFailure(t *testing.T) {
	a := testNetconfAdapter(nil, errors.New("dial tcp: connection refused"))

	_, err := a.ApplyIntent(context.Background(), testDevice(), nil, &types.Intent{Hostname: "r1"}, ApplyOptions{})
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("ApplyIntent() error = %v, want %v", err, ErrConnect)
	}
}

func TestNetconfAdapterCancelledContext(t *testing.T) {
	drv := &stubDriver{}
	a := testNetconfAdapter(drv, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.ApplyIntent(ctx, testDevice(), nil, &types.Intent{Hostname: "r1"}, ApplyOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ApplyIntent() error = %v, want %v", err, context.Canceled)
	}
	if len(drv.ops) != 0 {
		t.Errorf("ops = %v, cancelled pass must not open a session", drv.ops)
	}
}

func TestNetconfAdapterReadFacts(t *testing.T) {
	drv := &stubDriver{
		caps: []string{
			"urn:ietf:params:netconf:capability:candidate:1.0",
			"urn:ietf:params:netconf:capability:validate:1.1",
		},
		config: `<native xmlns="http://cisco.com/ns/yang/Cisco-IOS-XE-native"><hostname>edge-r1</hostname></native>`,
	}
	a := testNetconfAdapter(drv, nil)

	res, err := a.ReadFacts(context.Background(), testDevice(), nil)
	if err != nil {
		t.Fatalf("ReadFacts() error = %v", err)
	}
	if !res.OK {
		t.Fatalf("ReadFacts() = %+v", res)
	}
	want := map[string]string{
		"candidate":        "true",
		"confirmed-commit": "false",
		"validate":         "true",
		"hostname":         "edge-r1",
	}
	for k, v := range want {
		if res.Facts[k] != v {
			t.Errorf("Facts[%s] = %q, want %q", k, res.Facts[k], v)
		}
	}
	if res.Changed {
		t.Errorf("ReadFacts() Changed = true, fact reads never change the device")
	}
}

func TestNetconfAdapterSBIOverlay(t *testing.T) {
	a := newNetconfAdapter(&config.SBI{
		Type:           "netconf",
		Port:           830,
		Credentials:    &config.Creds{Username: "default", Password: "default"},
		NetconfOptions: &config.SBINetconfOptions{},
	})
	device := testDevice()
	device.Endpoint = types.Endpoint{Address: "10.1.1.1", Port: 8300}

	got := a.sbiFor(device, &types.Credentials{Username: "ops", Password: "secret"})
	if got.Address != "10.1.1.1" || got.Port != 8300 {
		t.Errorf("sbiFor() endpoint = %s:%d, want device endpoint", got.Address, got.Port)
	}
	if got.Credentials.Username != "ops" {
		t.Errorf("sbiFor() username = %s, want resolved credentials", got.Credentials.Username)
	}
	// the shared defaults stay untouched
	if a.cfg.Address != "" || a.cfg.Credentials.Username != "default" {
		t.Errorf("sbiFor() mutated the shared config: %+v", a.cfg)
	}

	got = a.sbiFor(testDevice(), nil)
	if got.Credentials.Username != "default" {
		t.Errorf("sbiFor() username = %s, want configured default", got.Credentials.Username)
	}
}

func TestGNMIAdapterDryRun(t *testing.T) {
	a := newGNMIAdapter(sbi("gnmi"))

	res, err := a.ApplyIntent(context.Background(), testDevice(), nil,
		&types.Intent{Hostname: "r1", NameServers: []string{"1.1.1.1"}},
		ApplyOptions{DryRun: true})
	if err != nil {
		t.Fatalf("ApplyIntent() error = %v", err)
	}
	if !res.OK || res.Changed {
		t.Fatalf("dry-run ApplyIntent() = %+v", res)
	}
	for _, want := range []string{"hostname", "r1", "1.1.1.1"} {
		if !strings.Contains(res.Detail, want) {
			t.Errorf("Detail = %q, missing %q", res.Detail, want)
		}
	}
}

func TestGNMIAdapterSetRequest(t *testing.T) {
	a := newGNMIAdapter(sbi("gnmi"))
	intent := &types.Intent{
		Hostname:   "r1",
		DomainName: "lab.example.com",
		Raw:        map[string]string{"system/config/login-banner": "restricted"},
	}

	setReq, err := a.buildSetRequest(intent, false)
	if err != nil {
		t.Fatalf("buildSetRequest() error = %v", err)
	}
	if len(setReq.GetUpdate()) != 3 || len(setReq.GetReplace()) != 0 {
		t.Fatalf("buildSetRequest() updates = %d replaces = %d, want 3/0",
			len(setReq.GetUpdate()), len(setReq.GetReplace()))
	}

	setReq, err = a.buildSetRequest(intent, true)
	if err != nil {
		t.Fatalf("buildSetRequest() error = %v", err)
	}
	if len(setReq.GetReplace()) != 3 || len(setReq.GetUpdate()) != 0 {
		t.Fatalf("buildSetRequest() updates = %d replaces = %d, want 0/3",
			len(setReq.GetUpdate()), len(setReq.GetReplace()))
	}
}

func TestToGNMIPath(t *testing.T) {
	p := toGNMIPath("system/dns/servers/server[address=1.1.1.1]/config/address")
	if len(p.GetElem()) != 6 {
		t.Fatalf("toGNMIPath() elems = %d, want 6", len(p.GetElem()))
	}
	keyed := p.GetElem()[3]
	if keyed.GetName() != "server" {
		t.Errorf("elem name = %s, want server", keyed.GetName())
	}
	if keyed.GetKey()["address"] != "1.1.1.1" {
		t.Errorf("elem key = %v, want address=1.1.1.1", keyed.GetKey())
	}
}
