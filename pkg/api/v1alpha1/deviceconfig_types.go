package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DeviceRef names the NetworkDevice the intent applies to. The device is
// looked up in the DeviceConfig's own namespace.
type DeviceRef struct {
	Name string `json:"name"`
}

// IntentSpec is the desired configuration expressed abstractly. The named
// fields are the supported settings; Raw is the escape hatch for
// vendor-specific paths and is rendered verbatim into the change document.
type IntentSpec struct {
	// +optional
	Hostname string `json:"hostname,omitempty"`
	// +optional
	DomainName string `json:"domainName,omitempty"`
	// +optional
	NameServers []string `json:"nameServers,omitempty"`
	// vendor-specific path to value mapping, e.g.
	// "native/banner/motd": "lab device"
	// +optional
	Raw map[string]string `json:"raw,omitempty"`
}

// DeviceConfigSpec is the desired state for one device.
type DeviceConfigSpec struct {
	DeviceRef DeviceRef  `json:"deviceRef"`
	Intent    IntentSpec `json:"intent,omitempty"`
	// preview the change without touching the device
	// +optional
	DryRun bool `json:"dryRun,omitempty"`
	// edit semantics, merge (default) or replace
	// +kubebuilder:validation:Enum=merge;replace
	// +optional
	Mode string `json:"mode,omitempty"`
}

// Phase of the last reconciliation.
type Phase string

const (
	PhasePending Phase = "pending"
	PhaseApplied Phase = "applied"
	PhaseError   Phase = "error"
)

// ErrorCode is a machine-checkable reason for phase error.
type ErrorCode string

const (
	// spec.deviceRef.name is empty
	ErrorCodeMissingDeviceRef ErrorCode = "MissingDeviceRef"
	// the referenced NetworkDevice does not exist
	ErrorCodeDeviceNotFound ErrorCode = "NetworkDeviceNotFound"
	// the intent failed structural validation
	ErrorCodeIntentRejected ErrorCode = "IntentRejected"
	// connecting or authenticating to the device failed
	ErrorCodeConnectFailed ErrorCode = "ConnectFailed"
	// another session holds the datastore lock
	ErrorCodeLockUnavailable ErrorCode = "LockUnavailable"
	// the device rejected the staged or committed change
	ErrorCodeApplyRejected ErrorCode = "ApplyRejected"
	// a commit ended in an undetermined state; a later fact read has to
	// resolve whether the change took effect
	ErrorCodeCommitUnconfirmed ErrorCode = "CommitUnconfirmed"
	// anything that has no more specific code
	ErrorCodeInternal ErrorCode = "InternalError"
)

// LastError is present exactly when phase is error.
type LastError struct {
	Code ErrorCode `json:"code"`
	// +optional
	Detail string `json:"detail,omitempty"`
}

// DeviceConfigStatus is the observed state, the only thing this
// controller ever writes.
type DeviceConfigStatus struct {
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// +optional
	Phase Phase `json:"phase,omitempty"`
	// +optional
	Message string `json:"message,omitempty"`
	// true only if a non-dry-run apply actually changed the device
	// +optional
	Changed bool `json:"changed,omitempty"`
	// +optional
	Facts map[string]string `json:"facts,omitempty"`
	// +optional
	LastError *LastError `json:"lastError,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status

// DeviceConfig is a declarative configuration intent for one network
// device.
type DeviceConfig struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec DeviceConfigSpec `json:"spec,omitempty"`
	// +optional
	Status DeviceConfigStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// DeviceConfigList contains a list of DeviceConfig
type DeviceConfigList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DeviceConfig `json:"items"`
}

func init() {
	SchemeBuilder.Register(&DeviceConfig{}, &DeviceConfigList{})
}
