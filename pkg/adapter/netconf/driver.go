package netconf

import (
	"time"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf/types"
)

// Driver is the narrow protocol boundary the session runs on. The
// production implementation lives in driver/scrapligo; tests substitute a
// fake. Every call blocks for at most the transport's operation timeout.
type Driver interface {
	// Capabilities returns the capability URIs the device advertised
	// during the hello exchange.
	Capabilities() []string
	// Get config or state
	Get(filter string) (*types.NetconfResponse, error)
	// GetConfig retrieves the source datastore, optionally reduced by a
	// subtree filter
	GetConfig(source string, filter string) (*types.NetconfResponse, error)
	// EditConfig stages the xml config payload into the target datastore
	// (candidate|running)
	EditConfig(target string, config string) (*types.NetconfResponse, error)
	// Lock a target datastore
	Lock(target string) (*types.NetconfResponse, error)
	// Unlock a target datastore
	Unlock(target string) (*types.NetconfResponse, error)
	// Validate a source datastore
	Validate(source string) (*types.NetconfResponse, error)
	// Commit applies the candidate changes to the running config. After a
	// confirmed commit it acts as the confirming commit.
	Commit() error
	// CommitConfirmed starts a commit the device reverts on its own unless
	// a confirming Commit arrives within the window. Drivers without
	// support return types.ErrCommitConfirmedUnsupported.
	CommitConfirmed(window time.Duration) error
	// Discard drops the candidate changes
	Discard() error
	// Close the connection to the device
	Close() error
	// IsAlive returns true if the underlying transport is still open
	IsAlive() bool
}
