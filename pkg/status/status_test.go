package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter"
	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf"
	"github.com/iptecharch/deviceconfig-controller/pkg/api/v1alpha1"
	"github.com/iptecharch/deviceconfig-controller/pkg/resolver"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

func TestApplied(t *testing.T) {
	st := Applied(3, &types.ApplyResult{
		OK:      true,
		Changed: true,
		Detail:  "committed to candidate",
		Facts:   map[string]string{"hostname": "r1"},
	})
	if st.Phase != v1alpha1.PhaseApplied {
		t.Errorf("phase = %s, want applied", st.Phase)
	}
	if st.ObservedGeneration != 3 {
		t.Errorf("observedGeneration = %d, want 3", st.ObservedGeneration)
	}
	if !st.Changed || st.Facts["hostname"] != "r1" {
		t.Errorf("status = %+v, result fields lost", st)
	}
	if st.LastError != nil {
		t.Errorf("lastError = %+v, want nil", st.LastError)
	}
}

func TestErrorStatus(t *testing.T) {
	st := Error(2, v1alpha1.ErrorCodeApplyRejected, "commit rejected")
	if st.Phase != v1alpha1.PhaseError {
		t.Errorf("phase = %s, want error", st.Phase)
	}
	if st.LastError == nil || st.LastError.Code != v1alpha1.ErrorCodeApplyRejected {
		t.Errorf("lastError = %+v", st.LastError)
	}
	if st.Message != "commit rejected" {
		t.Errorf("message = %q", st.Message)
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want v1alpha1.ErrorCode
	}{
		{
			name: "device not found",
			err:  fmt.Errorf("%w: default/r1", resolver.ErrDeviceNotFound),
			want: v1alpha1.ErrorCodeDeviceNotFound,
		},
		{
			name: "credentials missing",
			err:  fmt.Errorf("%w: secret default/r1-creds", resolver.ErrCredentialsNotFound),
			want: v1alpha1.ErrorCodeConnectFailed,
		},
		{
			name: "connect failed",
			err:  fmt.Errorf("%w: dev1: refused", adapter.ErrConnect),
			want: v1alpha1.ErrorCodeConnectFailed,
		},
		{
			name: "lock held",
			err:  fmt.Errorf("%w: candidate", netconf.ErrLockUnavailable),
			want: v1alpha1.ErrorCodeLockUnavailable,
		},
		{
			name: "unknown commit outcome",
			err:  fmt.Errorf("%w: connection reset", netconf.ErrUnknownState),
			want: v1alpha1.ErrorCodeCommitUnconfirmed,
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			want: v1alpha1.ErrorCodeInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeFor(tt.err); got != tt.want {
				t.Errorf("CodeFor() = %s, want %s", got, tt.want)
			}
			st := FromError(1, tt.err)
			if st.LastError == nil || st.LastError.Code != tt.want {
				t.Errorf("FromError() lastError = %+v, want code %s", st.LastError, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	tests := []struct {
		name string
		code v1alpha1.ErrorCode
		want bool
	}{
		{"missing deviceRef", v1alpha1.ErrorCodeMissingDeviceRef, true},
		{"device not found", v1alpha1.ErrorCodeDeviceNotFound, true},
		{"intent rejected", v1alpha1.ErrorCodeIntentRejected, true},
		{"apply rejected", v1alpha1.ErrorCodeApplyRejected, true},
		{"connect failed", v1alpha1.ErrorCodeConnectFailed, false},
		{"lock held", v1alpha1.ErrorCodeLockUnavailable, false},
		{"unconfirmed commit", v1alpha1.ErrorCodeCommitUnconfirmed, false},
		{"internal", v1alpha1.ErrorCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Terminal(tt.code); got != tt.want {
				t.Errorf("Terminal(%s) = %t, want %t", tt.code, got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"device not found", resolver.ErrDeviceNotFound, false},
		{"bad device", resolver.ErrBadDevice, false},
		{"credentials missing", resolver.ErrCredentialsNotFound, false},
		{"connect failed", adapter.ErrConnect, true},
		{"lock held", netconf.ErrLockUnavailable, true},
		{"unknown state", netconf.ErrUnknownState, true},
		{"plain error", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %t, want %t", got, tt.want)
			}
		})
	}
}
