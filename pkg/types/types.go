package types

import (
	"fmt"
	"sort"
	"strconv"
)

// DefaultNetconfPort is used when the device registry does not specify a port.
const DefaultNetconfPort = 830

// Transport identifies the southbound protocol used to reach a device.
type Transport string

const (
	TransportNetconf Transport = "netconf"
	TransportGNMI    Transport = "gnmi"
	TransportREST    Transport = "rest"
	TransportCLI     Transport = "cli"
)

// ParseTransport validates a transport name coming from the device registry.
func ParseTransport(s string) (Transport, error) {
	switch t := Transport(s); t {
	case TransportNetconf, TransportGNMI, TransportREST, TransportCLI:
		return t, nil
	case "":
		return TransportNetconf, nil
	}
	return "", fmt.Errorf("unknown transport %q", s)
}

type Endpoint struct {
	Address string
	Port    uint16
}

func (e Endpoint) String() string {
	return e.Address + ":" + strconv.Itoa(int(e.Port))
}

type Platform struct {
	Vendor string
	OS     string
	Model  string
}

type CredentialsRef struct {
	Name      string
	Namespace string
}

// Credentials are already-resolved southbound credentials. They are handed
// to the session layer as values, never loaded from ambient process state.
type Credentials struct {
	Username string
	Password string
}

// DeviceSpec is the resolved identity of one network device. It is built
// once per reconciliation pass from the NetworkDevice registry object and
// never mutated afterwards.
type DeviceSpec struct {
	Name      string
	Namespace string
	Endpoint  Endpoint
	Platform  Platform
	Transport Transport
	// CredentialsRef points at the secret holding the southbound
	// credentials, nil if the adapter default credentials apply.
	CredentialsRef *CredentialsRef
	Role           string
}

func (d *DeviceSpec) String() string {
	return d.Namespace + "/" + d.Name
}

// Intent is the desired configuration state of a device, independent of
// vendor command syntax. The named fields are the supported abstract
// settings; Raw carries vendor-specific paths ("native/banner/motd") that
// are rendered into the change document verbatim.
type Intent struct {
	Hostname    string
	DomainName  string
	NameServers []string
	Raw         map[string]string
}

func (i *Intent) Empty() bool {
	if i == nil {
		return true
	}
	return i.Hostname == "" && i.DomainName == "" && len(i.NameServers) == 0 && len(i.Raw) == 0
}

// Keys lists the set keys of the intent in a stable order.
func (i *Intent) Keys() []string {
	if i == nil {
		return nil
	}
	keys := make([]string, 0, 3+len(i.Raw))
	if i.Hostname != "" {
		keys = append(keys, "hostname")
	}
	if i.DomainName != "" {
		keys = append(keys, "domain-name")
	}
	if len(i.NameServers) > 0 {
		keys = append(keys, "name-servers")
	}
	for k := range i.Raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyResult is the outcome of a validate, apply or fact-read operation.
// Changed is only ever true for a non-dry-run apply that mutated the device.
type ApplyResult struct {
	OK      bool
	Detail  string
	Changed bool
	Facts   map[string]string
}
