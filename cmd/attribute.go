package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

var (
	attrEventID  int
	attrValue    string
	attrType     string
	attrCategory string
	attrComment  string
)

// addAttributeCmd represents the add-attribute command
var addAttributeCmd = &cobra.Command{
	Use:   "add-attribute",
	Short: "Add an attribute to an event",
	Long: `Add one attribute to an event. Adding a value the event already carries is
reported as a duplicate and changes nothing.

Examples:
  mispctl add-attribute --event 42 --value 1.2.3.4 --type ip-dst \
    --category "Network activity" --comment c2`,
	RunE: runAddAttribute,
}

func init() {
	rootCmd.AddCommand(addAttributeCmd)

	addAttributeCmd.Flags().IntVar(&attrEventID, "event", 0, "Event id (required)")
	addAttributeCmd.Flags().StringVar(&attrValue, "value", "", "Attribute value (required)")
	addAttributeCmd.Flags().StringVar(&attrType, "type", "", "Attribute type, e.g. ip-dst (required)")
	addAttributeCmd.Flags().StringVar(&attrCategory, "category", "", "Attribute category, e.g. \"Network activity\"")
	addAttributeCmd.Flags().StringVar(&attrComment, "comment", "", "Free-text comment")
	addAttributeCmd.MarkFlagRequired("event")
	addAttributeCmd.MarkFlagRequired("value")
	addAttributeCmd.MarkFlagRequired("type")
}

func runAddAttribute(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.client.AddEventAttribute(cmd.Context(), attrEventID, misp.Attribute{
		Value:    attrValue,
		Type:     attrType,
		Category: attrCategory,
		Comment:  attrComment,
	})
	printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
	return nil
}
