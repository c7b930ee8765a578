package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

var (
	tagEventID int
	tagID      int
	tagLocal   bool
	tagsRaw    bool
)

// addTagCmd represents the add-tag command
var addTagCmd = &cobra.Command{
	Use:   "add-tag",
	Short: "Attach a tag to an event",
	Long: `Attach a tag to an event by id. With --local the association stays on this
MISP instance and is not synchronised.

Examples:
  mispctl add-tag --event 42 --tag 5
  mispctl add-tag --event 42 --tag 9 --local`,
	RunE: runAddTag,
}

// searchTagsCmd represents the search-tags command
var searchTagsCmd = &cobra.Command{
	Use:   "search-tags <name-or-fragment>",
	Short: "Search tags by name",
	Long: `Search tags whose name matches a fragment and list their ids.

Examples:
  mispctl search-tags tlp
  mispctl search-tags "misp-galaxy:threat-actor" --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchTags,
}

func init() {
	rootCmd.AddCommand(addTagCmd)
	rootCmd.AddCommand(searchTagsCmd)

	addTagCmd.Flags().IntVar(&tagEventID, "event", 0, "Event id (required)")
	addTagCmd.Flags().IntVar(&tagID, "tag", 0, "Tag id (required)")
	addTagCmd.Flags().BoolVar(&tagLocal, "local", false, "Local-only association")
	addTagCmd.MarkFlagRequired("event")
	addTagCmd.MarkFlagRequired("tag")

	searchTagsCmd.Flags().BoolVar(&tagsRaw, "raw", false, "Print the server's JSON instead of a table")
}

func runAddTag(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.client.AddEventTag(cmd.Context(), tagEventID, tagID, tagLocal)
	printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
	return nil
}

func runSearchTags(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.client.SearchTags(cmd.Context(), args[0])
	if tagsRaw || !res.OK() {
		printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
		return nil
	}

	tags, err := misp.DecodeTags(res)
	if err != nil {
		printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
		return nil
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-8s %s\n", "ID", "NAME")
	for _, t := range tags {
		fmt.Fprintf(out, "%-8d %s\n", int(t.ID), t.Name)
	}
	return nil
}
