package netconf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"

	dctypes "github.com/iptecharch/deviceconfig-controller/pkg/types"
)

const (
	ncBase1_0 = "urn:ietf:params:xml:ns:netconf:base:1.0"

	nsIOSXENative      = "http://cisco.com/ns/yang/Cisco-IOS-XE-native"
	nsOpenconfigSystem = "http://openconfig.net/yang/system"

	operationReplace = "replace"
)

// Mode selects the edit-config semantics of a change document.
type Mode string

const (
	ModeMerge   Mode = "merge"
	ModeReplace Mode = "replace"
)

// platformModel maps the abstract intent fields onto the vendor-native
// paths of one platform family. Paths are slash separated, relative to the
// document root; the first element carries the model namespace.
type platformModel struct {
	namespace  string
	hostname   string
	domainName string
	nameServer string
}

// models keyed by "<vendor>/<os>", both lowercased. The cisco ios-xe
// entries follow the Cisco-IOS-XE-native module, everything else falls
// back to the openconfig-system layout.
var models = map[string]platformModel{
	"cisco/ios-xe": {
		namespace:  nsIOSXENative,
		hostname:   "native/hostname",
		domainName: "native/ip/domain/name",
		nameServer: "native/ip/name-server/no-vrf",
	},
}

var defaultModel = platformModel{
	namespace:  nsOpenconfigSystem,
	hostname:   "system/config/hostname",
	domainName: "system/config/domain-name",
	nameServer: "system/dns/config/server",
}

func modelFor(p dctypes.Platform) platformModel {
	key := strings.ToLower(p.Vendor) + "/" + strings.ToLower(p.OS)
	if m, ok := models[key]; ok {
		return m
	}
	return defaultModel
}

// ChangeDocument is the rendered form of an intent for one platform
// family. It renders both the edit-config payload and the matching subtree
// filter used for dry-run previews and fact reads.
type ChangeDocument struct {
	doc *etree.Document
}

// BuildChangeDocument renders the abstract intent into the vendor-native
// XML payload for the device platform. The intent must have passed
// structural validation; an empty intent is rejected here as a last line
// of defense.
func BuildChangeDocument(platform dctypes.Platform, intent *dctypes.Intent) (*ChangeDocument, error) {
	if intent.Empty() {
		return nil, fmt.Errorf("empty intent")
	}
	m := modelFor(platform)
	cd := &ChangeDocument{doc: etree.NewDocument()}

	if intent.Hostname != "" {
		cd.addLeaf(m, m.hostname, intent.Hostname)
	}
	if intent.DomainName != "" {
		cd.addLeaf(m, m.domainName, intent.DomainName)
	}
	for _, ns := range intent.NameServers {
		cd.appendLeaf(m, m.nameServer, ns)
	}
	for _, path := range sortedKeys(intent.Raw) {
		if err := validRawPath(path); err != nil {
			return nil, err
		}
		cd.addLeaf(m, path, intent.Raw[path])
	}
	return cd, nil
}

// addLeaf walks the slash separated path from the document root, creating
// missing elements, and sets the leaf text. Shared prefixes are reused so
// sibling leaves end up under one tree.
func (cd *ChangeDocument) addLeaf(m platformModel, path, value string) {
	elem := cd.fastForward(m, strings.Split(path, "/"))
	elem.SetText(value)
}

// appendLeaf always creates a fresh leaf element, for leaf-lists.
func (cd *ChangeDocument) appendLeaf(m platformModel, path, value string) {
	parts := strings.Split(path, "/")
	parent := &cd.doc.Element
	if len(parts) > 1 {
		parent = cd.fastForward(m, parts[:len(parts)-1])
	}
	leaf := parent.CreateElement(parts[len(parts)-1])
	leaf.SetText(value)
}

func (cd *ChangeDocument) fastForward(m platformModel, parts []string) *etree.Element {
	elem := &cd.doc.Element
	for i, part := range parts {
		next := elem.SelectElement(part)
		if next == nil {
			next = elem.CreateElement(part)
			if i == 0 {
				next.CreateAttr("xmlns", m.namespace)
			}
		}
		elem = next
	}
	return elem
}

// XML renders the edit-config payload, without the surrounding <config/>
// wrapper (the driver adds it). In replace mode every top-level element
// carries the nc:operation="replace" attribute.
func (cd *ChangeDocument) XML(mode Mode) (string, error) {
	doc := cd.doc.Copy()
	if mode == ModeReplace {
		for _, root := range doc.ChildElements() {
			root.CreateAttr("xmlns:nc", ncBase1_0)
			root.CreateAttr("nc:operation", operationReplace)
		}
	}
	doc.Unindent()
	return doc.WriteToString()
}

// Filter derives the subtree filter that selects exactly the document's
// leaves: the same tree with all leaf values stripped.
func (cd *ChangeDocument) Filter() (string, error) {
	doc := cd.doc.Copy()
	for _, root := range doc.ChildElements() {
		stripText(root)
	}
	doc.Unindent()
	return doc.WriteToString()
}

func stripText(e *etree.Element) {
	children := e.ChildElements()
	if len(children) == 0 {
		e.SetText("")
		return
	}
	for _, c := range children {
		stripText(c)
	}
}

func validRawPath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return fmt.Errorf("invalid intent path %q", path)
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			return fmt.Errorf("invalid intent path %q", path)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// stable rendering order regardless of map iteration
	sort.Strings(keys)
	return keys
}
