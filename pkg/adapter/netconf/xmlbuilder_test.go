package netconf

import (
	"strings"
	"testing"

	dctypes "github.com/iptecharch/deviceconfig-controller/pkg/types"
)

var (
	iosxe   = dctypes.Platform{Vendor: "cisco", OS: "ios-xe"}
	unknown = dctypes.Platform{Vendor: "acme", OS: "acme-os"}
)

func TestBuildChangeDocument(t *testing.T) {
	tests := []struct {
		name         string
		platform     dctypes.Platform
		intent       *dctypes.Intent
		mode         Mode
		wantContains []string
		wantAbsent   []string
		wantErr      bool
	}{
		{
			name:     "ios-xe hostname",
			platform: iosxe,
			intent:   &dctypes.Intent{Hostname: "r1"},
			mode:     ModeMerge,
			wantContains: []string{
				`<native xmlns="http://cisco.com/ns/yang/Cisco-IOS-XE-native">`,
				`<hostname>r1</hostname>`,
			},
		},
		{
			name:     "ios-xe full intent shares one tree",
			platform: iosxe,
			intent: &dctypes.Intent{
				Hostname:    "r1",
				DomainName:  "lab.example.com",
				NameServers: []string{"1.1.1.1", "8.8.8.8"},
			},
			mode: ModeMerge,
			wantContains: []string{
				`<hostname>r1</hostname>`,
				`<domain><name>lab.example.com</name></domain>`,
				`<no-vrf>1.1.1.1</no-vrf><no-vrf>8.8.8.8</no-vrf>`,
			},
			wantAbsent: []string{
				// one native root, not one per leaf
				`</native><native`,
			},
		},
		{
			name:     "unknown platform falls back to openconfig",
			platform: unknown,
			intent:   &dctypes.Intent{Hostname: "r1"},
			mode:     ModeMerge,
			wantContains: []string{
				`<system xmlns="http://openconfig.net/yang/system">`,
				`<hostname>r1</hostname>`,
			},
		},
		{
			name:     "replace mode tags top level elements",
			platform: iosxe,
			intent:   &dctypes.Intent{Hostname: "r1"},
			mode:     ModeReplace,
			wantContains: []string{
				`xmlns:nc="urn:ietf:params:xml:ns:netconf:base:1.0"`,
				`nc:operation="replace"`,
			},
		},
		{
			name:     "raw paths are rendered verbatim",
			platform: iosxe,
			intent: &dctypes.Intent{
				Raw: map[string]string{"native/banner/motd": "maintenance window"},
			},
			mode: ModeMerge,
			wantContains: []string{
				`<banner><motd>maintenance window</motd></banner>`,
			},
		},
		{
			name:     "empty intent rejected",
			platform: iosxe,
			intent:   &dctypes.Intent{},
			wantErr:  true,
		},
		{
			name:     "absolute raw path rejected",
			platform: iosxe,
			intent: &dctypes.Intent{
				Raw: map[string]string{"/native/hostname": "r1"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cd, err := BuildChangeDocument(tt.platform, tt.intent)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BuildChangeDocument() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildChangeDocument() error = %v", err)
			}
			got, err := cd.XML(tt.mode)
			if err != nil {
				t.Fatalf("XML() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("XML() = %s, missing %s", got, want)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("XML() = %s, should not contain %s", got, absent)
				}
			}
		})
	}
}

func TestChangeDocumentFilter(t *testing.T) {
	cd, err := BuildChangeDocument(iosxe, &dctypes.Intent{Hostname: "r1", DomainName: "lab.example.com"})
	if err != nil {
		t.Fatalf("BuildChangeDocument() error = %v", err)
	}
	filter, err := cd.Filter()
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if strings.Contains(filter, "r1") || strings.Contains(filter, "lab.example.com") {
		t.Errorf("Filter() = %s, leaf values must be stripped", filter)
	}
	if !strings.Contains(filter, "hostname") || !strings.Contains(filter, "domain") {
		t.Errorf("Filter() = %s, must keep the selecting structure", filter)
	}
	// the original document is untouched
	payload, err := cd.XML(ModeMerge)
	if err != nil {
		t.Fatalf("XML() error = %v", err)
	}
	if !strings.Contains(payload, "r1") {
		t.Errorf("XML() = %s, lost its values after Filter()", payload)
	}
}

func TestChangeDocumentRawOrderStable(t *testing.T) {
	intent := &dctypes.Intent{
		Raw: map[string]string{
			"native/banner/motd":  "b",
			"native/banner/exec":  "a",
			"native/service/pad":  "false",
			"native/service/dhcp": "true",
		},
	}
	first, err := BuildChangeDocument(iosxe, intent)
	if err != nil {
		t.Fatalf("BuildChangeDocument() error = %v", err)
	}
	want, _ := first.XML(ModeMerge)
	for i := 0; i < 10; i++ {
		cd, err := BuildChangeDocument(iosxe, intent)
		if err != nil {
			t.Fatalf("BuildChangeDocument() error = %v", err)
		}
		got, _ := cd.XML(ModeMerge)
		if got != want {
			t.Fatalf("XML() not deterministic:\n%s\nvs\n%s", got, want)
		}
	}
}
