// Package resolver turns the API-level device reference of a DeviceConfig
// into the resolved DeviceSpec and Credentials the adapters consume.
package resolver

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/iptecharch/deviceconfig-controller/pkg/api/v1alpha1"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

var (
	// ErrDeviceNotFound: the referenced NetworkDevice object does not
	// exist. Terminal for the current generation, not retried.
	ErrDeviceNotFound = errors.New("network device not found")
	// ErrBadDevice: the NetworkDevice exists but cannot be resolved into
	// a usable device spec. Terminal as well.
	ErrBadDevice = errors.New("invalid network device")
	// ErrCredentialsNotFound: the secret the device points at is missing
	// or lacks the expected keys. Terminal.
	ErrCredentialsNotFound = errors.New("device credentials not found")
)

const (
	secretUsernameKey = "username"
	secretPasswordKey = "password"
)

type Resolver struct {
	client ctrlclient.Client
}

func New(c ctrlclient.Client) *Resolver {
	return &Resolver{client: c}
}

// ResolveDevice reads the NetworkDevice the DeviceConfig points at and
// builds the immutable DeviceSpec for this reconciliation pass. Any error
// other than the terminal sentinels is a transient read failure.
func (r *Resolver) ResolveDevice(ctx context.Context, namespace, name string) (*types.DeviceSpec, error) {
	nd := &v1alpha1.NetworkDevice{}
	err := r.client.Get(ctx, ctrlclient.ObjectKey{Namespace: namespace, Name: name}, nd)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrDeviceNotFound, namespace, name)
		}
		return nil, fmt.Errorf("reading network device %s/%s: %w", namespace, name, err)
	}
	return deviceSpec(nd)
}

func deviceSpec(nd *v1alpha1.NetworkDevice) (*types.DeviceSpec, error) {
	if nd.Spec.Endpoint.Address == "" {
		return nil, fmt.Errorf("%w: %s/%s: endpoint address not set", ErrBadDevice, nd.Namespace, nd.Name)
	}
	transport, err := types.ParseTransport(nd.Spec.Transport)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrBadDevice, nd.Namespace, nd.Name, err)
	}
	port := nd.Spec.Endpoint.Port
	if port == 0 {
		port = types.DefaultNetconfPort
	}
	spec := &types.DeviceSpec{
		Name:      nd.Name,
		Namespace: nd.Namespace,
		Endpoint: types.Endpoint{
			Address: nd.Spec.Endpoint.Address,
			Port:    port,
		},
		Platform: types.Platform{
			Vendor: nd.Spec.Platform.Vendor,
			OS:     nd.Spec.Platform.OS,
			Model:  nd.Spec.Platform.Model,
		},
		Transport: transport,
		Role:      nd.Spec.Role,
	}
	if ref := nd.Spec.CredentialsRef; ref != nil {
		ns := ref.Namespace
		if ns == "" {
			ns = nd.Namespace
		}
		spec.CredentialsRef = &types.CredentialsRef{
			Name:      ref.Name,
			Namespace: ns,
		}
	}
	return spec, nil
}

// ResolveCredentials loads the southbound credentials for a resolved
// device. A device without a credentials reference yields nil, which makes
// the adapter fall back to its configured defaults.
func (r *Resolver) ResolveCredentials(ctx context.Context, device *types.DeviceSpec) (*types.Credentials, error) {
	ref := device.CredentialsRef
	if ref == nil {
		return nil, nil
	}
	secret := &corev1.Secret{}
	err := r.client.Get(ctx, ctrlclient.ObjectKey{Namespace: ref.Namespace, Name: ref.Name}, secret)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: secret %s/%s", ErrCredentialsNotFound, ref.Namespace, ref.Name)
		}
		return nil, fmt.Errorf("reading secret %s/%s: %w", ref.Namespace, ref.Name, err)
	}
	username, ok := secret.Data[secretUsernameKey]
	if !ok {
		return nil, fmt.Errorf("%w: secret %s/%s has no %q key", ErrCredentialsNotFound, ref.Namespace, ref.Name, secretUsernameKey)
	}
	password, ok := secret.Data[secretPasswordKey]
	if !ok {
		return nil, fmt.Errorf("%w: secret %s/%s has no %q key", ErrCredentialsNotFound, ref.Namespace, ref.Name, secretPasswordKey)
	}
	return &types.Credentials{
		Username: string(username),
		Password: string(password),
	}, nil
}
