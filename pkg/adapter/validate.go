package adapter

import (
	"fmt"
	"net"
	"strings"

	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

// checkIntent is the structural validation shared by all adapters. It is
// pure: malformed intents are rejected here, before any device contact.
func checkIntent(intent *types.Intent) *types.ApplyResult {
	if intent.Empty() {
		return &types.ApplyResult{OK: false, Detail: "intent is empty"}
	}
	if intent.Hostname != "" {
		if err := checkHostname(intent.Hostname); err != nil {
			return &types.ApplyResult{OK: false, Detail: err.Error()}
		}
	}
	if intent.DomainName != "" {
		if err := checkDomainName(intent.DomainName); err != nil {
			return &types.ApplyResult{OK: false, Detail: err.Error()}
		}
	}
	for _, ns := range intent.NameServers {
		if net.ParseIP(ns) == nil {
			return &types.ApplyResult{OK: false, Detail: fmt.Sprintf("name server %q is not an IP address", ns)}
		}
	}
	for path, value := range intent.Raw {
		if err := checkRawEntry(path, value); err != nil {
			return &types.ApplyResult{OK: false, Detail: err.Error()}
		}
	}
	return &types.ApplyResult{
		OK:     true,
		Detail: fmt.Sprintf("intent valid, keys=%v", intent.Keys()),
	}
}

func checkHostname(h string) error {
	if len(h) > 63 {
		return fmt.Errorf("hostname %q exceeds 63 characters", h)
	}
	if strings.HasPrefix(h, "-") || strings.HasSuffix(h, "-") {
		return fmt.Errorf("hostname %q must not start or end with a hyphen", h)
	}
	for _, r := range h {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' {
			continue
		}
		return fmt.Errorf("hostname %q contains invalid character %q", h, r)
	}
	return nil
}

func checkDomainName(d string) error {
	if len(d) > 253 {
		return fmt.Errorf("domain name %q too long", d)
	}
	for _, label := range strings.Split(d, ".") {
		if label == "" {
			return fmt.Errorf("domain name %q has an empty label", d)
		}
		if err := checkHostname(label); err != nil {
			return fmt.Errorf("domain name %q: %v", d, err)
		}
	}
	return nil
}

func checkRawEntry(path, value string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return fmt.Errorf("invalid intent path %q", path)
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" || strings.ContainsAny(part, " <>&\"'") {
			return fmt.Errorf("invalid intent path %q", path)
		}
	}
	if value == "" {
		return fmt.Errorf("intent path %q has an empty value", path)
	}
	return nil
}
