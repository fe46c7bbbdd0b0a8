package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joss/ohc/internal/api"
	"github.com/joss/ohc/internal/render"
)

func serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage server profiles",
		Long:  "Add, list, and select OpenHands Cloud server profiles",
	}

	// ohc server add <name> <url>
	var apiKey string
	var setDefault bool
	addCmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a server profile",
		Long:  "Store a server URL and API key. The first profile becomes the default.",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			name, rawURL := args[0], args[1]

			key := apiKey
			if key == "" {
				key = promptAPIKey()
			}
			if key == "" {
				exitOnError(fmt.Errorf("an API key is required"))
			}

			store := newStore()
			if err := store.Add(name, rawURL, key, setDefault); err != nil {
				exitOnError(err)
			}

			srv, _, err := store.Get(name)
			if err != nil {
				exitOnError(err)
			}
			fmt.Printf("Added server '%s' (%s)\n", name, srv.URL)
			if srv.Default {
				fmt.Println("This server is now the default.")
			}
		},
	}
	addCmd.Flags().StringVarP(&apiKey, "api-key", "k", "", "API key (prompted when omitted)")
	addCmd.Flags().BoolVarP(&setDefault, "default", "d", false, "Make this server the default")

	// ohc server list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured servers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			servers, err := newStore().List()
			if err != nil {
				exitOnError(err)
			}
			fmt.Print(render.New(!plain).ServerList(servers))
		},
	}

	// ohc server delete <name>
	deleteCmd := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"remove", "rm"},
		Short:   "Delete a server profile",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			removed, err := newStore().Remove(args[0])
			if err != nil {
				exitOnError(err)
			}
			if !removed {
				fmt.Printf("Server '%s' not found.\n", args[0])
				return
			}
			fmt.Printf("Deleted server '%s'\n", args[0])
		},
	}

	// ohc server set-default <name>
	setDefaultCmd := &cobra.Command{
		Use:   "set-default <name>",
		Short: "Make a server the default",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ok, err := newStore().SetDefault(args[0])
			if err != nil {
				exitOnError(err)
			}
			if !ok {
				fmt.Printf("Server '%s' not found.\n", args[0])
				return
			}
			fmt.Printf("Default server is now '%s'\n", args[0])
		},
	}

	// ohc server test [name]
	testCmd := &cobra.Command{
		Use:   "test [name]",
		Short: "Test connectivity of a server profile",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			srv, resolved, err := newStore().Get(name)
			if err != nil {
				exitOnError(err)
			}
			if srv == nil {
				exitOnError(fmt.Errorf("no matching server; see 'ohc server list'"))
			}

			fmt.Printf("Testing '%s' (%s)... ", resolved, srv.URL)
			if api.New(srv.APIKey, srv.URL).TestConnection(context.Background()) {
				fmt.Println("OK")
				return
			}
			fmt.Println("FAILED")
			os.Exit(1)
		},
	}

	cmd.AddCommand(addCmd, listCmd, deleteCmd, setDefaultCmd, testCmd)
	return cmd
}

// promptAPIKey reads a key from the terminal without echo, falling back to a
// plain line read when stdin is not a terminal (piped input).
func promptAPIKey() string {
	fmt.Fprint(os.Stderr, "API key: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		key, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(key))
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}
