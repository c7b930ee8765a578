package cmd

import (
	"github.com/spf13/cobra"
)

var (
	findOrg       string
	findName      string
	findAttribute string
)

// findEventCmd represents the find-event command
var findEventCmd = &cobra.Command{
	Use:   "find-event",
	Short: "Search events by organization and name",
	Long: `Search MISP events of an organization whose info matches a name, optionally
restricted to events carrying an attribute value. Prints the server's JSON.

Examples:
  mispctl find-event --org orgX --name "Test Event 1"
  mispctl find-event --org orgX --name "Test Event 1" --attribute 1.2.3.4`,
	RunE: runFindEvent,
}

func init() {
	rootCmd.AddCommand(findEventCmd)

	findEventCmd.Flags().StringVar(&findOrg, "org", "", "Organization (required)")
	findEventCmd.Flags().StringVar(&findName, "name", "", "Event info / name (required)")
	findEventCmd.Flags().StringVar(&findAttribute, "attribute", "", "Only events carrying this attribute value")
	findEventCmd.MarkFlagRequired("org")
	findEventCmd.MarkFlagRequired("name")
}

func runFindEvent(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.client.FindEvent(cmd.Context(), findOrg, findName, findAttribute)
	printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
	return nil
}
