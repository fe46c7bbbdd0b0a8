package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joss/ohc/internal/api"
	"github.com/joss/ohc/internal/config"
	"github.com/joss/ohc/internal/resolve"
)

// exitOnError prints the error to stderr and exits non-zero.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// newStore opens the server profile store, exiting on setup failure.
func newStore() *config.Store {
	store, err := config.NewStore()
	if err != nil {
		exitOnError(err)
	}
	return store
}

// newClient builds an API client from the selected server profile. With no
// profiles configured, OHC_API_KEY against the hosted service is the last
// resort.
func newClient() *api.Client {
	srv, _, err := newStore().Get(serverName)
	if err != nil {
		exitOnError(err)
	}
	if srv == nil {
		if serverName != "" {
			exitOnError(fmt.Errorf("server %q not found; see 'ohc server list'", serverName))
		}
		if key := os.Getenv("OHC_API_KEY"); key != "" {
			return api.New(key, "")
		}
		exitOnError(fmt.Errorf("no servers configured; run 'ohc server add' or set OHC_API_KEY"))
	}
	return api.New(srv.APIKey, srv.URL)
}

// resolveConversation turns a user token (number, prefix, or full ID) into a
// conversation ID. A resolution miss is a user-facing diagnostic, not a
// failure: it is printed and the command returns false. Transport errors
// still exit non-zero.
func resolveConversation(ctx context.Context, client *api.Client, token string) (string, bool) {
	id, err := resolve.ConversationID(ctx, client, token)
	if err != nil {
		if resolve.IsNoResult(err) {
			fmt.Println(err.Error())
			return "", false
		}
		exitOnError(err)
	}
	return id, true
}
