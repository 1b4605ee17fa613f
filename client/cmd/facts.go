package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iptecharch/deviceconfig-controller/pkg/adapter/netconf"
	"github.com/iptecharch/deviceconfig-controller/pkg/types"
)

// factsCmd reads the device's current identity facts.
var factsCmd = &cobra.Command{
	Use:          "facts",
	Short:        "read hostname and capability facts from the device",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		fmt.Printf("vendor:    %s\n", vendor)
		fmt.Printf("os:        %s\n", osName)
		fmt.Printf("datastore: %s\n", sess.Datastore())

		cd, err := netconf.BuildChangeDocument(platform(), &types.Intent{Hostname: "x"})
		if err != nil {
			return err
		}
		filter, err := cd.Filter()
		if err != nil {
			return err
		}
		resp, err := sess.ReadConfig(netconf.DatastoreRunning, filter)
		if err != nil {
			return err
		}
		if hostname := resp.FindText("//hostname"); hostname != "" {
			fmt.Printf("hostname:  %s\n", hostname)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(factsCmd)
}
