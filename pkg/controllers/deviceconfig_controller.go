// Package controllers contains the DeviceConfig reconciler: it watches
// DeviceConfig intents and drives them onto devices through a southbound
// adapter.
package controllers

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter"
	"github.com/iptecharch/deviceconfig-controller/pkg/api/v1alpha1"
	"github.com/iptecharch/deviceconfig-controller/pkg/config"
	"github.com/iptecharch/deviceconfig-controller/pkg/metrics"
	"github.com/iptecharch/deviceconfig-controller/pkg/resolver"
	"github.com/iptecharch/deviceconfig-controller/pkg/status"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

// DeviceConfigReconciler reconciles DeviceConfig objects against real
// devices. Multiple DeviceConfigs proceed in parallel, but at most one
// session per device is ever in flight.
type DeviceConfigReconciler struct {
	Client   ctrlclient.Client
	Resolver *resolver.Resolver
	Adapter  adapter.Adapter
	Config   *config.Controller
	Metrics  *metrics.Metrics

	mu      sync.Mutex
	devices map[string]*semaphore.Weighted
}

func NewDeviceConfigReconciler(c ctrlclient.Client, a adapter.Adapter, cfg *config.Controller, m *metrics.Metrics) *DeviceConfigReconciler {
	return &DeviceConfigReconciler{
		Client:   c,
		Resolver: resolver.New(c),
		Adapter:  a,
		Config:   cfg,
		Metrics:  m,
		devices:  map[string]*semaphore.Weighted{},
	}
}

//+kubebuilder:rbac:groups=netops.example.com,resources=deviceconfigs,verbs=get;list;watch
//+kubebuilder:rbac:groups=netops.example.com,resources=deviceconfigs/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=netops.example.com,resources=networkdevices,verbs=get;list;watch
//+kubebuilder:rbac:groups="",resources=secrets,verbs=get

func (r *DeviceConfigReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	dc := &v1alpha1.DeviceConfig{}
	if err := r.Client.Get(ctx, req.NamespacedName, dc); err != nil {
		if apierrors.IsNotFound(err) {
			// deleted between event and pass, nothing to undo: removal of
			// an intent never reverts device state
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	// a generation that ended applied, or in an error a retry cannot
	// change, needs no further device contact; transient codes (connect
	// failures, lock contention, unconfirmed commits) re-enter the pass
	if dc.Status.ObservedGeneration == dc.Generation && reconciled(&dc.Status) {
		log.Debugf("%s: generation %d already reconciled, phase %s", req.NamespacedName, dc.Generation, dc.Status.Phase)
		return ctrl.Result{}, nil
	}

	// an unconfirmed commit means the device may or may not carry the
	// change; a fact read settles it before anything is re-applied
	unknownCommit := dc.Status.ObservedGeneration == dc.Generation &&
		dc.Status.LastError != nil &&
		dc.Status.LastError.Code == v1alpha1.ErrorCodeCommitUnconfirmed

	if dc.Spec.DeviceRef.Name == "" {
		r.Metrics.Reconciles.WithLabelValues("error").Inc()
		return ctrl.Result{}, r.writeStatus(ctx, dc,
			status.Error(dc.Generation, v1alpha1.ErrorCodeMissingDeviceRef, "spec.deviceRef.name is required"))
	}

	device, err := r.Resolver.ResolveDevice(ctx, dc.Namespace, dc.Spec.DeviceRef.Name)
	if err != nil {
		return r.failed(ctx, dc, err)
	}

	intent := intentOf(&dc.Spec.Intent)
	if res := r.Adapter.ValidateIntent(intent); !res.OK {
		r.Metrics.Reconciles.WithLabelValues("error").Inc()
		return ctrl.Result{}, r.writeStatus(ctx, dc,
			status.Rejected(dc.Generation, v1alpha1.ErrorCodeIntentRejected, res))
	}

	creds, err := r.Resolver.ResolveCredentials(ctx, device)
	if err != nil {
		return r.failed(ctx, dc, err)
	}

	// per-device serialization: a second DeviceConfig for the same device
	// waits its turn in the queue instead of fighting for the device lock
	sem := r.deviceSlot(device)
	if !sem.TryAcquire(1) {
		log.Infof("%s: device %s busy, requeueing", req.NamespacedName, device)
		r.Metrics.LockRetries.Inc()
		return ctrl.Result{RequeueAfter: r.Config.RetryDelay}, nil
	}
	defer sem.Release(1)

	r.Metrics.InFlight.Inc()
	defer r.Metrics.InFlight.Dec()

	if unknownCommit {
		log.Infof("%s: prior commit outcome unknown, reading facts from %s", req.NamespacedName, device)
		res, err := r.resolveUnknownCommit(ctx, device, creds, intent)
		if err != nil {
			return r.failed(ctx, dc, err)
		}
		if res != nil {
			r.Metrics.Reconciles.WithLabelValues("applied").Inc()
			return ctrl.Result{}, r.writeStatus(ctx, dc, status.Applied(dc.Generation, res))
		}
		// the facts do not show the change, apply it again below
	}

	// mark the generation as picked up before the device work starts; the
	// apply may take a while
	if err := r.writeStatus(ctx, dc, status.Pending(dc.Generation)); err != nil {
		return ctrl.Result{}, err
	}

	opts := adapter.ApplyOptions{
		DryRun:  dc.Spec.DryRun,
		Replace: dc.Spec.Mode == "replace",
	}
	log.Infof("%s: applying intent %v to %s (dry-run=%t)", req.NamespacedName, intent.Keys(), device, opts.DryRun)

	start := time.Now()
	res, err := r.Adapter.ApplyIntent(ctx, device, creds, intent, opts)
	r.Metrics.ApplyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.Metrics.Applies.WithLabelValues("error").Inc()
		return r.failed(ctx, dc, err)
	}
	if !res.OK {
		// the device looked at the content and said no; a retry with the
		// same generation would be rejected the same way
		r.Metrics.Applies.WithLabelValues("rejected").Inc()
		r.Metrics.Reconciles.WithLabelValues("error").Inc()
		return ctrl.Result{}, r.writeStatus(ctx, dc,
			status.Rejected(dc.Generation, v1alpha1.ErrorCodeApplyRejected, res))
	}

	r.Metrics.Applies.WithLabelValues("ok").Inc()
	r.Metrics.Reconciles.WithLabelValues("applied").Inc()
	return ctrl.Result{}, r.writeStatus(ctx, dc, status.Applied(dc.Generation, res))
}

// reconciled reports whether a status already settles its generation.
func reconciled(st *v1alpha1.DeviceConfigStatus) bool {
	if st.Phase == v1alpha1.PhaseApplied {
		return true
	}
	return st.Phase == v1alpha1.PhaseError &&
		st.LastError != nil &&
		status.Terminal(st.LastError.Code)
}

// resolveUnknownCommit settles a commit whose outcome was lost to a
// transport fault. A non-nil result means the facts show the intent on the
// device and the generation can be projected as applied; nil means the
// change is not visible and the apply has to run again.
func (r *DeviceConfigReconciler) resolveUnknownCommit(ctx context.Context, device *types.DeviceSpec, creds *types.Credentials, intent *types.Intent) (*types.ApplyResult, error) {
	res, err := r.Adapter.ReadFacts(ctx, device, creds)
	if err != nil {
		return nil, err
	}
	if !res.OK || intent.Hostname == "" || res.Facts["hostname"] != intent.Hostname {
		return nil, nil
	}
	res.Changed = true
	res.Detail = "commit confirmed by fact read"
	return res, nil
}

// failed writes an error status and decides the retry policy from the
// error class: terminal errors end the generation, transient ones go back
// to the workqueue for backoff.
func (r *DeviceConfigReconciler) failed(ctx context.Context, dc *v1alpha1.DeviceConfig, err error) (ctrl.Result, error) {
	st := status.FromError(dc.Generation, err)
	if werr := r.writeStatus(ctx, dc, st); werr != nil {
		return ctrl.Result{}, werr
	}
	r.Metrics.Reconciles.WithLabelValues("error").Inc()
	if st.LastError != nil && st.LastError.Code == v1alpha1.ErrorCodeLockUnavailable {
		// somebody else holds the datastore lock, try again after the
		// configured delay rather than through error backoff
		r.Metrics.LockRetries.Inc()
		return ctrl.Result{RequeueAfter: r.Config.RetryDelay}, nil
	}
	if !status.Retryable(err) {
		log.Errorf("%s/%s: %v", dc.Namespace, dc.Name, err)
		return ctrl.Result{}, nil
	}
	return ctrl.Result{}, err
}

func (r *DeviceConfigReconciler) writeStatus(ctx context.Context, dc *v1alpha1.DeviceConfig, st v1alpha1.DeviceConfigStatus) error {
	dc.Status = st
	if err := r.Client.Status().Update(ctx, dc); err != nil {
		return err
	}
	return nil
}

func (r *DeviceConfigReconciler) deviceSlot(device *types.DeviceSpec) *semaphore.Weighted {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := device.String()
	sem, ok := r.devices[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		r.devices[key] = sem
	}
	return sem
}

func intentOf(in *v1alpha1.IntentSpec) *types.Intent {
	intent := &types.Intent{
		Hostname:   in.Hostname,
		DomainName: in.DomainName,
	}
	if len(in.NameServers) > 0 {
		intent.NameServers = append([]string{}, in.NameServers...)
	}
	if len(in.Raw) > 0 {
		intent.Raw = make(map[string]string, len(in.Raw))
		for k, v := range in.Raw {
			intent.Raw[k] = v
		}
	}
	return intent
}

func (r *DeviceConfigReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.DeviceConfig{}).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: r.Config.MaxConcurrentReconciles,
		}).
		Complete(r)
}
