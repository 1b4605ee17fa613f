package config

import (
	"fmt"
	"time"
)

// SBI describes how the controller reaches devices southbound. Address,
// Port and Credentials act as defaults; per-device values resolved from the
// NetworkDevice registry take precedence.
type SBI struct {
	// Southbound interface type, one of: netconf, gnmi, noop
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
	// netconf or gNMI address
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	Port    uint16 `yaml:"port,omitempty" json:"port,omitempty"`
	// TLS config, gNMI only
	TLS *TLS `yaml:"tls,omitempty" json:"tls,omitempty"`
	// default device credentials, used when the NetworkDevice carries no
	// credentials reference
	Credentials    *Creds             `yaml:"credentials,omitempty" json:"credentials,omitempty"`
	NetconfOptions *SBINetconfOptions `yaml:"netconf-options,omitempty" json:"netconf-options,omitempty"`
	GnmiOptions    *SBIGnmiOptions    `yaml:"gnmi-options,omitempty" json:"gnmi-options,omitempty"`
	// Timeout bounds every individual RPC towards the device
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

type Creds struct {
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

type SBINetconfOptions struct {
	// sets the preferred NC version: 1.0 or 1.1
	PreferredNCVersion string `yaml:"preferred-nc-version,omitempty" json:"preferred-nc-version,omitempty"`
	// revert window granted to the device on a confirmed commit. Zero
	// disables confirmed commits even on capable devices.
	CommitConfirmTimeout time.Duration `yaml:"commit-confirm-timeout,omitempty" json:"commit-confirm-timeout,omitempty"`
}

type SBIGnmiOptions struct {
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty"`
}

func (s *SBI) validateSetDefaults() error {
	if s.Type == "" {
		s.Type = "netconf"
	}
	switch s.Type {
	case "netconf", "gnmi", "noop":
	default:
		return fmt.Errorf("unknown southbound type %q", s.Type)
	}
	if s.Port == 0 {
		s.Port = defaultNCPort
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	if s.NetconfOptions == nil {
		s.NetconfOptions = &SBINetconfOptions{}
	}
	if s.NetconfOptions.CommitConfirmTimeout < 0 {
		return fmt.Errorf("negative commit-confirm-timeout")
	}
	if s.NetconfOptions.CommitConfirmTimeout == 0 {
		s.NetconfOptions.CommitConfirmTimeout = defaultCommitConfirmTimeout
	}
	if s.GnmiOptions == nil {
		s.GnmiOptions = &SBIGnmiOptions{}
	}
	if s.GnmiOptions.Encoding == "" {
		s.GnmiOptions.Encoding = defaultGnmiEncoding
	}
	return nil
}

// DeepCopy returns a copy of the SBI config suitable for per-device
// overrides without touching the shared defaults.
func (s *SBI) DeepCopy() *SBI {
	if s == nil {
		return nil
	}
	out := *s
	if s.TLS != nil {
		tls := *s.TLS
		out.TLS = &tls
	}
	if s.Credentials != nil {
		creds := *s.Credentials
		out.Credentials = &creds
	}
	if s.NetconfOptions != nil {
		nco := *s.NetconfOptions
		out.NetconfOptions = &nco
	}
	if s.GnmiOptions != nil {
		gno := *s.GnmiOptions
		out.GnmiOptions = &gno
	}
	return &out
}
