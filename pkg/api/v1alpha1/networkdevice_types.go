package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Endpoint is the management address of a device.
type Endpoint struct {
	Address string `json:"address"`
	// management port, defaults to 830 (netconf over ssh)
	// +optional
	Port uint16 `json:"port,omitempty"`
}

type Platform struct {
	Vendor string `json:"vendor,omitempty"`
	OS     string `json:"os,omitempty"`
	// +optional
	Model string `json:"model,omitempty"`
}

// CredentialsRef points at a secret holding the southbound username and
// password for the device.
type CredentialsRef struct {
	Name string `json:"name"`
	// +optional
	Namespace string `json:"namespace,omitempty"`
}

// NetworkDeviceSpec describes how to reach and address one device.
type NetworkDeviceSpec struct {
	Endpoint Endpoint `json:"endpoint"`
	// +optional
	Platform Platform `json:"platform,omitempty"`
	// southbound transport, one of: netconf, gnmi, rest, cli
	// +optional
	Transport string `json:"transport,omitempty"`
	// +optional
	CredentialsRef *CredentialsRef `json:"credentialsRef,omitempty"`
	// free-form role tag (edge, core, lab, ...)
	// +optional
	Role string `json:"role,omitempty"`
}

//+kubebuilder:object:root=true

// NetworkDevice is the device registry object. It is read-only input to
// the controller; reconciliation never writes to it.
type NetworkDevice struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec NetworkDeviceSpec `json:"spec,omitempty"`
}

//+kubebuilder:object:root=true

// NetworkDeviceList contains a list of NetworkDevice
type NetworkDeviceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []NetworkDevice `json:"items"`
}

func init() {
	SchemeBuilder.Register(&NetworkDevice{}, &NetworkDeviceList{})
}
