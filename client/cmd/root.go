package cmd

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf"
	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf/driver/scrapligo"
	"github.com/iptecharch/deviceconfig-controller/pkg/config"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "devctl",
	Short: "talk netconf to a single device, no cluster required",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var (
	addr     string
	port     uint16
	username string
	password string
	vendor   string
	osName   string
	timeout  time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&addr, "address", "a", envOr("NETCONF_HOST", ""), "device address")
	rootCmd.PersistentFlags().Uint16VarP(&port, "port", "p", envPort(), "netconf port")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", envOr("NETCONF_USER", "admin"), "username")
	rootCmd.PersistentFlags().StringVar(&password, "password", envOr("NETCONF_PASS", ""), "password")
	rootCmd.PersistentFlags().StringVar(&vendor, "vendor", "cisco", "platform vendor")
	rootCmd.PersistentFlags().StringVar(&osName, "os", "ios-xe", "platform OS")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "per RPC timeout")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envPort() uint16 {
	if v := os.Getenv("NETCONF_PORT"); v != "" {
		if p, err := strconv.ParseUint(v, 10, 16); err == nil {
			return uint16(p)
		}
	}
	return types.DefaultNetconfPort
}

func platform() types.Platform {
	return types.Platform{Vendor: vendor, OS: osName}
}

// openSession dials the device and wraps it in a transactional session.
// The caller owns the Close.
func openSession(opts ...netconf.SessionOption) (*netconf.Session, error) {
	cfg := &config.SBI{
		Type:    "netconf",
		Address: addr,
		Port:    port,
		Credentials: &config.Creds{
			Username: username,
			Password: password,
		},
		NetconfOptions: &config.SBINetconfOptions{},
		Timeout:        timeout,
	}
	drv, err := scrapligo.NewScrapligoNetconfTarget(cfg)
	if err != nil {
		return nil, err
	}
	return netconf.NewSession(drv, addr, opts...), nil
}
