package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

var (
	applyHostname    string
	applyDomainName  string
	applyNameServers []string
	applySet         []string
	applyDryRun      bool
	applyReplace     bool
	applyConfirmed   bool
	applyWindow      time.Duration
)

// applyCmd stages, validates and commits an intent in one transactional
// pass. With --confirmed the commit stays provisional until the operator
// acknowledges it; a declined or lost confirmation makes the device revert.
var applyCmd = &cobra.Command{
	Use:          "apply",
	Short:        "apply a configuration intent to the device",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		intent := &types.Intent{
			Hostname:    applyHostname,
			DomainName:  applyDomainName,
			NameServers: applyNameServers,
		}
		for _, kv := range applySet {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("invalid --set %q, expected path=value", kv)
			}
			if intent.Raw == nil {
				intent.Raw = map[string]string{}
			}
			intent.Raw[parts[0]] = parts[1]
		}
		if intent.Empty() {
			return fmt.Errorf("empty intent, set at least one of --hostname, --domain-name, --name-server, --set")
		}

		cd, err := netconf.BuildChangeDocument(platform(), intent)
		if err != nil {
			return err
		}

		opts := []netconf.SessionOption{
			netconf.WithCommitConfirmTimeout(applyWindow),
		}
		if applyConfirmed {
			opts = append(opts, netconf.WithManualConfirm())
		}
		sess, err := openSession(opts...)
		if err != nil {
			return err
		}
		defer sess.Close()

		mode := netconf.ModeMerge
		if applyReplace {
			mode = netconf.ModeReplace
		}
		res, err := sess.Apply(cd, mode, applyDryRun)
		if err != nil {
			return err
		}
		fmt.Println(res.Detail)
		if !res.OK {
			os.Exit(1)
		}

		if applyConfirmed && !applyDryRun {
			fmt.Printf("confirm commit? [y/N]: ")
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.TrimSpace(line) != "y" {
				fmt.Println("not confirmed, device reverts when the window expires")
				return nil
			}
			cres, err := sess.ConfirmCommit()
			if err != nil {
				return err
			}
			fmt.Println(cres.Detail)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVar(&applyHostname, "hostname", "", "desired hostname")
	applyCmd.Flags().StringVar(&applyDomainName, "domain-name", "", "desired dns domain name")
	applyCmd.Flags().StringArrayVar(&applyNameServers, "name-server", nil, "desired dns name server, repeatable")
	applyCmd.Flags().StringArrayVar(&applySet, "set", nil, "raw path=value setting, repeatable")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "preview the change without touching the device")
	applyCmd.Flags().BoolVar(&applyReplace, "replace", false, "replace instead of merge")
	applyCmd.Flags().BoolVar(&applyConfirmed, "confirmed", false, "keep the commit provisional until confirmed interactively")
	applyCmd.Flags().DurationVar(&applyWindow, "confirm-timeout", 30*time.Second, "revert window for confirmed commits")
}
