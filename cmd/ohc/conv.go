package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/ohc/internal/api"
	"github.com/joss/ohc/internal/render"
	ohcstrings "github.com/joss/ohc/internal/strings"
	"github.com/joss/ohc/internal/workspace"
)

func convCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conv",
		Aliases: []string{"conversation"},
		Short:   "Conversation commands",
		Long: `Browse, wake, and download conversations.

Conversations are addressed by a token: a listing number (1-based), an
ID prefix, or a full conversation ID.`,
	}

	// ohc conv list
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			result, err := newClient().SearchConversations(context.Background(), "", limit)
			if err != nil {
				exitOnError(err)
			}
			fmt.Print(render.New(!plain).ConversationList(result.Results))
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Max conversations to list")

	// ohc conv show <token>
	showCmd := &cobra.Command{
		Use:   "show <token>",
		Short: "Show conversation details",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			client := newClient()
			id, ok := resolveConversation(ctx, client, args[0])
			if !ok {
				return
			}
			conv, err := client.GetConversation(ctx, id)
			if err != nil {
				exitOnError(err)
			}
			fmt.Print(render.New(!plain).ConversationDetails(conv))
		},
	}

	// ohc conv wake <token>
	wakeCmd := &cobra.Command{
		Use:     "wake <token>",
		Aliases: []string{"start"},
		Short:   "Wake (start) a stopped conversation",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			client := newClient()
			id, ok := resolveConversation(ctx, client, args[0])
			if !ok {
				return
			}

			conv, err := client.GetConversation(ctx, id)
			if err != nil {
				exitOnError(err)
			}
			if conv.IsActive() {
				fmt.Printf("Conversation %s is already running.\n", conv.ShortID())
				return
			}

			result, err := client.StartConversation(ctx, id, nil)
			if err != nil {
				exitOnError(err)
			}
			fmt.Printf("Conversation %s starting (status: %s)\n", conv.ShortID(), result.Status)
			if result.URL != "" {
				fmt.Printf("Runtime: %s\n", result.URL)
			}
		},
	}

	// ohc conv ws-changes <token>
	changesCmd := &cobra.Command{
		Use:     "ws-changes <token>",
		Aliases: []string{"changes"},
		Short:   "Show uncommitted workspace changes",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			client := newClient()
			conv, ok := activeConversation(ctx, client, args[0])
			if !ok {
				return
			}

			changes, err := client.GetConversationChanges(ctx, conv.ID, conv.RuntimeHost(), conv.SessionAPIKey)
			if err != nil {
				exitOnError(err)
			}
			fmt.Print(render.New(!plain).Changes(changes))
		},
	}

	// ohc conv ws-download <token>
	var archiveOut string
	downloadCmd := &cobra.Command{
		Use:     "ws-download <token>",
		Aliases: []string{"ws-dl"},
		Short:   "Download the whole workspace as a ZIP",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			client := newClient()
			conv, ok := activeConversation(ctx, client, args[0])
			if !ok {
				return
			}

			data, err := client.DownloadWorkspaceArchive(ctx, conv.ID, conv.RuntimeHost(), conv.SessionAPIKey)
			if err != nil {
				exitOnError(err)
			}

			out := archiveOut
			if out == "" {
				out = ohcstrings.Slug(conv.DisplayTitle(), 50) + "_workspace.zip"
			}
			out = workspace.UniquePath(out)
			if err := workspace.SaveArchive(out, data); err != nil {
				exitOnError(err)
			}
			fmt.Printf("Saved workspace to %s (%d bytes)\n", out, len(data))
		},
	}
	downloadCmd.Flags().StringVarP(&archiveOut, "output", "o", "", "Output path (default: derived from the title)")

	// ohc conv files <token>
	var filesOut string
	var include []string
	filesCmd := &cobra.Command{
		Use:   "files <token>",
		Short: "Download only the changed workspace files",
		Long:  "Fetch each uncommitted file and pack them into a local ZIP. Deleted files are skipped.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			client := newClient()
			conv, ok := activeConversation(ctx, client, args[0])
			if !ok {
				return
			}

			out := filesOut
			if out == "" {
				out = ohcstrings.Slug(conv.DisplayTitle(), 50) + "_changes.zip"
			}
			out = workspace.UniquePath(out)

			result, err := workspace.NewDownloader(client).DownloadChanges(ctx, conv, out, workspace.Options{Include: include})
			if errors.Is(err, workspace.ErrNoChanges) {
				fmt.Println("No changed files to download.")
				return
			}
			if err != nil {
				exitOnError(err)
			}

			fmt.Printf("Saved %d files to %s\n", result.Written, out)
			if result.SkippedDeleted > 0 {
				fmt.Printf("Skipped %d deleted files\n", result.SkippedDeleted)
			}
			if len(result.Failed) > 0 {
				fmt.Printf("Failed to fetch %d files:\n", len(result.Failed))
				for _, p := range result.Failed {
					fmt.Printf("  %s\n", p)
				}
			}
		},
	}
	filesCmd.Flags().StringVarP(&filesOut, "output", "o", "", "Output path (default: derived from the title)")
	filesCmd.Flags().StringSliceVar(&include, "include", nil, "Glob patterns to include (e.g. '**/*.go')")

	// ohc conv trajectory <token>
	var trajOut string
	trajectoryCmd := &cobra.Command{
		Use:     "trajectory <token>",
		Aliases: []string{"traj"},
		Short:   "Download the conversation trajectory as JSON",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			client := newClient()
			conv, ok := activeConversation(ctx, client, args[0])
			if !ok {
				return
			}

			raw, err := client.GetTrajectory(ctx, conv.ID, conv.RuntimeHost(), conv.SessionAPIKey)
			if err != nil {
				exitOnError(err)
			}

			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				exitOnError(fmt.Errorf("decode trajectory: %w", err))
			}
			pretty, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				exitOnError(err)
			}

			out := trajOut
			if out == "" {
				out = ohcstrings.Slug(conv.DisplayTitle(), 50) + "_trajectory.json"
			}
			out = workspace.UniquePath(out)
			if err := workspace.SaveArchive(out, pretty); err != nil {
				exitOnError(err)
			}
			fmt.Printf("Saved trajectory to %s (%d bytes)\n", out, len(pretty))
		},
	}
	trajectoryCmd.Flags().StringVarP(&trajOut, "output", "o", "", "Output path (default: derived from the title)")

	// ohc conv ls <token> [path]
	lsCmd := &cobra.Command{
		Use:   "ls <token> [path]",
		Short: "List workspace files",
		Long:  "List entries under a workspace path on the runtime. Directories end with a slash.",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			client := newClient()
			conv, ok := activeConversation(ctx, client, args[0])
			if !ok {
				return
			}

			path := ""
			if len(args) > 1 {
				path = args[1]
			}
			entries, err := client.ListWorkspaceFiles(ctx, conv.ID, path, conv.RuntimeHost(), conv.SessionAPIKey)
			if err != nil {
				exitOnError(err)
			}
			if len(entries) == 0 {
				fmt.Println("No files found.")
				return
			}
			for _, entry := range entries {
				fmt.Println(entry)
			}
		},
	}

	cmd.AddCommand(listCmd, showCmd, wakeCmd, changesCmd, downloadCmd, filesCmd, trajectoryCmd, lsCmd)
	return cmd
}

// activeConversation resolves a token and checks the conversation has a
// running runtime. Workspace operations only work against a live runtime.
func activeConversation(ctx context.Context, client *api.Client, token string) (*api.Conversation, bool) {
	id, ok := resolveConversation(ctx, client, token)
	if !ok {
		return nil, false
	}
	conv, err := client.GetConversation(ctx, id)
	if err != nil {
		exitOnError(err)
	}
	if !conv.IsActive() {
		fmt.Printf("Conversation %s is not running. Wake it first: ohc conv wake %s\n", conv.ShortID(), conv.ShortID())
		return nil, false
	}
	return conv, true
}
