package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var allCapabilities bool

// datastoresCmd reports which datastores and transaction features the
// device advertises.
var datastoresCmd = &cobra.Command{
	Use:          "datastores",
	Short:        "show the device's datastores and transaction capabilities",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		caps, err := sess.Capabilities()
		if err != nil {
			return err
		}
		fmt.Printf("target datastore:  %s\n", sess.Datastore())
		fmt.Printf("candidate:         %t\n", sess.HasCapability("capability:candidate"))
		fmt.Printf("confirmed-commit:  %t\n", sess.HasCapability("capability:confirmed-commit"))
		fmt.Printf("validate:          %t\n", sess.HasCapability("capability:validate"))
		fmt.Printf("capabilities:      %d\n", len(caps))
		if allCapabilities {
			for _, c := range caps {
				fmt.Println(c)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datastoresCmd)

	datastoresCmd.Flags().BoolVarP(&allCapabilities, "all", "", false, "print every capability URI")
}
