package main

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter"
	"github.com/iptecharch/deviceconfig-controller/pkg/api/v1alpha1"
	"github.com/iptecharch/deviceconfig-controller/pkg/config"
	"github.com/iptecharch/deviceconfig-controller/pkg/controllers"
	"github.com/iptecharch/deviceconfig-controller/pkg/metrics"
	"github.com/iptecharch/deviceconfig-controller/pkg/server"
)

var configFile string
var debug bool
var trace bool

var versionFlag bool
var version = "dev"
var commit = ""

var scheme = runtime.NewScheme()

func init() {
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		panic(err)
	}
	if err := v1alpha1.AddToScheme(scheme); err != nil {
		panic(err)
	}
}

func main() {
	pflag.StringVarP(&configFile, "config", "c", "", "config file path")
	pflag.BoolVarP(&debug, "debug", "d", false, "set log level to DEBUG")
	pflag.BoolVarP(&trace, "trace", "t", false, "set log level to TRACE")
	pflag.BoolVarP(&versionFlag, "version", "v", false, "print version")
	pflag.Parse()

	if versionFlag {
		fmt.Println(version + "-" + commit)
		return
	}
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	}
	if trace {
		log.SetLevel(log.TraceLevel)
		log.SetReportCaller(true)
	}
	ctrl.SetLogger(zap.New(zap.UseDevMode(debug)))

	cfg, err := config.New(configFile)
	if err != nil {
		log.Errorf("failed to read config: %v", err)
		os.Exit(1)
	}
	if err = cfg.Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		os.Exit(1)
	}
	b, _ := json.MarshalIndent(cfg, "", "  ")
	log.Infof("read config:\n%s", string(b))

	ctx := ctrl.SetupSignalHandler()

	m := metrics.New()
	srv := server.New(cfg, m)

	a, err := adapter.New(cfg.Southbound, srv.GnmiDialOptions()...)
	if err != nil {
		log.Errorf("failed to create southbound adapter: %v", err)
		os.Exit(1)
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme: scheme,
		// the manager's own metrics endpoint stays off, /metrics is served
		// by the observability server
		MetricsBindAddress: "0",
	})
	if err != nil {
		log.Errorf("failed to create manager: %v", err)
		os.Exit(1)
	}

	rec := controllers.NewDeviceConfigReconciler(mgr.GetClient(), a, cfg.Controller, m)
	if err = rec.SetupWithManager(mgr); err != nil {
		log.Errorf("failed to set up controller: %v", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Serve(ctx); err != nil {
			log.Errorf("metrics server failed: %v", err)
		}
	}()
	go func() {
		<-mgr.Elected()
		srv.SetReady(true)
	}()

	log.Infof("deviceconfig-controller bootstrap, version %s-%s", version, commit)
	if err := mgr.Start(ctx); err != nil {
		log.Errorf("manager exited: %v", err)
		os.Exit(1)
	}
}
