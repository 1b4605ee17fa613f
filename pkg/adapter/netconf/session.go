package netconf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kylelemons/godebug/diff"
	log "github.com/sirupsen/logrus"

	nctypes "github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf/types"
	dctypes "github.com/iptecharch/deviceconfig-controller/pkg/types"
)

// State of a session. Transitions:
// disconnected -open-> connected -lock-> locked -stage-> staged
// -validate-> validated -commit-> committed -unlock-> connected.
// Any failing step moves to failed; the unlock still runs.
type State uint8

const (
	StateDisconnected State = iota
	StateConnected
	StateLocked
	StateStaged
	StateValidated
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateLocked:
		return "locked"
	case StateStaged:
		return "staged"
	case StateValidated:
		return "validated"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

const (
	DatastoreCandidate = "candidate"
	DatastoreRunning   = "running"
)

// capability URI fragments, matched as substrings so that both the :1.0
// and :1.1 variants count.
const (
	capCandidate       = "capability:candidate"
	capConfirmedCommit = "capability:confirmed-commit"
	capValidate        = "capability:validate"
)

// Session owns one connection to one device and runs the transactional
// stage/validate/commit protocol on it. A session is not safe for
// concurrent use; the datastore lock makes concurrent applies to one
// device mutually exclusive across sessions.
type Session struct {
	drv  Driver
	name string
	caps []string

	state          State
	confirmTimeout time.Duration
	manualConfirm  bool
	pendingConfirm bool
}

type SessionOption func(*Session)

// WithCommitConfirmTimeout sets the revert window granted to the device on
// a confirmed commit. Zero disables confirmed commits.
func WithCommitConfirmTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.confirmTimeout = d
	}
}

// WithManualConfirm leaves a confirmed commit provisional; the caller has
// to invoke ConfirmCommit before the window expires, otherwise the device
// reverts the change.
func WithManualConfirm() SessionOption {
	return func(s *Session) {
		s.manualConfirm = true
	}
}

// NewSession wraps an already-connected driver. The dial itself happens in
// the driver constructor so that callers decide the retry policy around
// connection failures.
func NewSession(drv Driver, name string, opts ...SessionOption) *Session {
	s := &Session{
		drv:            drv,
		name:           name,
		caps:           drv.Capabilities(),
		state:          StateConnected,
		confirmTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) State() State {
	return s.state
}

// Capabilities returns the capability URIs the device advertised.
func (s *Session) Capabilities() ([]string, error) {
	if s.state == StateDisconnected {
		return nil, fmt.Errorf("%w: session to %s closed", ErrNotConnected, s.name)
	}
	return s.caps, nil
}

// HasCapability reports whether any advertised capability URI contains the
// given fragment.
func (s *Session) HasCapability(fragment string) bool {
	for _, c := range s.caps {
		if strings.Contains(c, fragment) {
			return true
		}
	}
	return false
}

// Datastore returns the datastore changes are staged into: candidate when
// the device supports it, running otherwise.
func (s *Session) Datastore() string {
	if s.HasCapability(capCandidate) {
		return DatastoreCandidate
	}
	return DatastoreRunning
}

// Apply stages the change document into the target datastore, validates it
// if the device can, and commits. The datastore lock taken at entry is
// released on every path out of this function.
//
// Content rejections by the device (staging, validation, commit rejected)
// come back as ApplyResult.OK=false with a nil error: they are persistent
// and must not be retried with unchanged content. Errors are returned for
// conditions the caller may retry (ErrLockUnavailable) or must resolve
// through a later fact read (ErrUnknownState).
func (s *Session) Apply(cd *ChangeDocument, mode Mode, dryRun bool) (res *dctypes.ApplyResult, err error) {
	if s.state != StateConnected {
		return nil, fmt.Errorf("%w: session to %s is %s", ErrNotConnected, s.name, s.state)
	}
	store := s.Datastore()
	log.Debugf("%s: locking %s", s.name, store)
	if _, lerr := s.drv.Lock(store); lerr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLockUnavailable, store, lerr)
	}
	s.state = StateLocked
	defer func() {
		// unconditional: the lock never outlives this call
		if _, uerr := s.drv.Unlock(store); uerr != nil {
			log.Errorf("%s: unlock %s failed: %v", s.name, store, uerr)
			if err == nil {
				err = fmt.Errorf("unlock %s: %v", store, uerr)
			}
		} else {
			log.Debugf("%s: unlocked %s", s.name, store)
		}
		if s.state != StateFailed && s.state != StateDisconnected {
			s.state = StateConnected
		}
	}()

	if dryRun {
		return s.preview(store, cd)
	}

	payload, perr := cd.XML(mode)
	if perr != nil {
		return nil, perr
	}

	log.Debugf("%s: staging change into %s", s.name, store)
	if _, eerr := s.drv.EditConfig(store, payload); eerr != nil {
		s.state = StateFailed
		return &dctypes.ApplyResult{OK: false, Detail: fmt.Sprintf("staging rejected: %v", eerr)}, nil
	}
	s.state = StateStaged

	if s.HasCapability(capValidate) {
		log.Debugf("%s: validating %s", s.name, store)
		if _, verr := s.drv.Validate(store); verr != nil {
			s.discard(store)
			s.state = StateFailed
			return &dctypes.ApplyResult{OK: false, Detail: fmt.Sprintf("validation failed: %v", verr)}, nil
		}
		s.state = StateValidated
	}

	if store == DatastoreCandidate {
		if cerr := s.commit(); cerr != nil {
			s.state = StateFailed
			switch {
			case errors.Is(cerr, ErrUnknownState):
				return nil, cerr
			case errors.Is(cerr, nctypes.ErrRPCFailed):
				s.discard(store)
				return &dctypes.ApplyResult{OK: false, Detail: fmt.Sprintf("commit rejected: %v", cerr)}, nil
			default:
				// transport fault mid-commit: the outcome is undetermined
				return nil, fmt.Errorf("%w: %v", ErrUnknownState, cerr)
			}
		}
	}
	s.state = StateCommitted

	detail := fmt.Sprintf("committed to %s", store)
	if s.pendingConfirm {
		detail = fmt.Sprintf("provisional commit to %s, confirmation required within %s", store, s.confirmTimeout)
	}
	return &dctypes.ApplyResult{OK: true, Changed: true, Detail: detail}, nil
}

// commit prefers a confirmed commit when both the device and the driver
// support it, so that a lost session auto-reverts the change. Plain commit
// otherwise.
func (s *Session) commit() error {
	if s.confirmTimeout > 0 && s.HasCapability(capConfirmedCommit) {
		err := s.drv.CommitConfirmed(s.confirmTimeout)
		switch {
		case errors.Is(err, nctypes.ErrCommitConfirmedUnsupported):
			log.Debugf("%s: driver lacks confirmed commit, falling back to plain commit", s.name)
		case err != nil:
			return err
		default:
			s.pendingConfirm = true
			if s.manualConfirm {
				log.Infof("%s: provisional commit, awaiting confirmation", s.name)
				return nil
			}
			if cerr := s.drv.Commit(); cerr != nil {
				return fmt.Errorf("%w: confirming commit failed, device reverts at window expiry: %v", ErrUnknownState, cerr)
			}
			s.pendingConfirm = false
			return nil
		}
	}
	return s.drv.Commit()
}

// ConfirmCommit turns a provisional commit permanent.
func (s *Session) ConfirmCommit() (*dctypes.ApplyResult, error) {
	if s.state == StateDisconnected {
		return nil, fmt.Errorf("%w: session to %s closed", ErrNotConnected, s.name)
	}
	if !s.pendingConfirm {
		return nil, ErrNoPendingConfirmation
	}
	if err := s.drv.Commit(); err != nil {
		return nil, fmt.Errorf("%w: confirming commit failed, device reverts at window expiry: %v", ErrUnknownState, err)
	}
	s.pendingConfirm = false
	return &dctypes.ApplyResult{OK: true, Changed: true, Detail: "pending commit confirmed"}, nil
}

// ReadConfig retrieves the source datastore, optionally reduced by a
// subtree filter. Read-only, allowed in any connected state.
func (s *Session) ReadConfig(source, filter string) (*nctypes.NetconfResponse, error) {
	if s.state == StateDisconnected {
		return nil, fmt.Errorf("%w: session to %s closed", ErrNotConnected, s.name)
	}
	return s.drv.GetConfig(source, filter)
}

// Close releases the connection regardless of session state. Safe to call
// more than once.
func (s *Session) Close() error {
	if s.state == StateDisconnected {
		return nil
	}
	s.state = StateDisconnected
	if s.pendingConfirm {
		log.Warnf("%s: closing with unconfirmed commit, device reverts at window expiry", s.name)
	}
	return s.drv.Close()
}

// preview computes the dry-run diff between the device's view of the
// intent subtree and the desired document. Nothing is staged or committed.
func (s *Session) preview(store string, cd *ChangeDocument) (*dctypes.ApplyResult, error) {
	desired, err := cd.XML(ModeMerge)
	if err != nil {
		return nil, err
	}
	filter, err := cd.Filter()
	if err != nil {
		return nil, err
	}
	current := ""
	resp, gerr := s.drv.GetConfig(store, filter)
	if gerr != nil {
		// an unreadable subtree still permits a preview against nothing
		log.Debugf("%s: dry-run get-config failed: %v", s.name, gerr)
	} else {
		current = resp.DocAsString(false)
	}
	d := diff.Diff(current, desired)
	detail := "dry-run: no changes"
	if d != "" {
		detail = "dry-run diff:\n" + d
	}
	return &dctypes.ApplyResult{OK: true, Changed: false, Detail: detail}, nil
}

func (s *Session) discard(store string) {
	if store != DatastoreCandidate {
		return
	}
	if derr := s.drv.Discard(); derr != nil {
		log.Errorf("%s: discarding candidate failed: %v", s.name, derr)
	}
}
