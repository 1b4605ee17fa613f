// Package status projects reconciliation outcomes onto the DeviceConfig
// status subresource. Every pass ends in exactly one of these projections;
// the reconciler itself never assembles a status by hand.
package status

import (
	"errors"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter"
	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf"
	"github.com/iptecharch/deviceconfig-controller/pkg/api/v1alpha1"
	"github.com/iptecharch/deviceconfig-controller/pkg/resolver"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

// Pending marks a generation as seen but not yet acted on.
func Pending(generation int64) v1alpha1.DeviceConfigStatus {
	return v1alpha1.DeviceConfigStatus{
		ObservedGeneration: generation,
		Phase:              v1alpha1.PhasePending,
	}
}

// Applied projects a successful apply or dry-run result.
func Applied(generation int64, res *types.ApplyResult) v1alpha1.DeviceConfigStatus {
	return v1alpha1.DeviceConfigStatus{
		ObservedGeneration: generation,
		Phase:              v1alpha1.PhaseApplied,
		Message:            res.Detail,
		Changed:            res.Changed,
		Facts:              res.Facts,
	}
}

// Rejected projects an adapter result that refused the intent or the
// change. The phase is error with the detail the adapter produced.
func Rejected(generation int64, code v1alpha1.ErrorCode, res *types.ApplyResult) v1alpha1.DeviceConfigStatus {
	return Error(generation, code, res.Detail)
}

// Error projects a terminal failure with an explicit code.
func Error(generation int64, code v1alpha1.ErrorCode, detail string) v1alpha1.DeviceConfigStatus {
	return v1alpha1.DeviceConfigStatus{
		ObservedGeneration: generation,
		Phase:              v1alpha1.PhaseError,
		Message:            detail,
		LastError: &v1alpha1.LastError{
			Code:   code,
			Detail: detail,
		},
	}
}

// FromError classifies an error from the resolver or an adapter into the
// status error code it maps to.
func FromError(generation int64, err error) v1alpha1.DeviceConfigStatus {
	return Error(generation, CodeFor(err), err.Error())
}

// CodeFor maps the sentinel errors of the lower layers onto status codes.
func CodeFor(err error) v1alpha1.ErrorCode {
	switch {
	case errors.Is(err, resolver.ErrDeviceNotFound):
		return v1alpha1.ErrorCodeDeviceNotFound
	case errors.Is(err, resolver.ErrCredentialsNotFound),
		errors.Is(err, adapter.ErrConnect):
		return v1alpha1.ErrorCodeConnectFailed
	case errors.Is(err, netconf.ErrLockUnavailable):
		return v1alpha1.ErrorCodeLockUnavailable
	case errors.Is(err, netconf.ErrUnknownState):
		return v1alpha1.ErrorCodeCommitUnconfirmed
	}
	return v1alpha1.ErrorCodeInternal
}

// Terminal reports whether a status error code names an outcome that a
// retry of the same generation cannot change. Transient codes (connect
// failures, lock contention, unconfirmed commits) must re-enter the pass.
func Terminal(code v1alpha1.ErrorCode) bool {
	switch code {
	case v1alpha1.ErrorCodeMissingDeviceRef,
		v1alpha1.ErrorCodeDeviceNotFound,
		v1alpha1.ErrorCodeIntentRejected,
		v1alpha1.ErrorCodeApplyRejected:
		return true
	}
	return false
}

// Retryable reports whether an error is worth another pass without a new
// generation. Device-not-found and invalid-device errors only resolve when
// the referenced objects change, which triggers a fresh event anyway.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, resolver.ErrDeviceNotFound),
		errors.Is(err, resolver.ErrBadDevice),
		errors.Is(err, resolver.ErrCredentialsNotFound):
		return false
	}
	return true
}
