package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ochse/webwatch/pkg/client"
)

type command struct{}

// newAPIClient builds a client for the daemon, defaulting to the local one
func newAPIClient(apiURL string, timeout time.Duration) *client.Client {
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080" // Default local daemon
	}
	return client.New(client.Config{BaseURL: apiURL, Timeout: timeout})
}

// reachableClient returns a client or an error when the daemon is down
func reachableClient(apiURL string, timeout time.Duration) (*client.Client, error) {
	c := newAPIClient(apiURL, timeout)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if !c.IsReachable(ctx) {
		return nil, fmt.Errorf("daemon not reachable - please start it first with 'webwatch serve'")
	}
	return c, nil
}

// Add registers a monitor via the daemon API
func (c command) Add(f MonitorFlags) error {
	apiClient, err := reachableClient(f.APIUrl, f.APITimeout)
	if err != nil {
		return err
	}

	id, err := apiClient.Create(context.Background(), client.CreateRequest{
		URL:        f.URL,
		Selector:   f.Selector,
		OwnerEmail: f.OwnerEmail,
		OwnerKey:   f.OwnerKey,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Monitor %d created for %s\n", id, f.URL)
	return nil
}

// List prints all monitors owned by the given key
func (c command) List(f MonitorFlags) error {
	apiClient, err := reachableClient(f.APIUrl, f.APITimeout)
	if err != nil {
		return err
	}

	monitors, err := apiClient.List(context.Background(), f.OwnerKey)
	if err != nil {
		return err
	}

	printJSON(monitors)
	return nil
}

// Remove deletes a monitor owned by the given key
func (c command) Remove(f MonitorFlags) error {
	apiClient, err := reachableClient(f.APIUrl, f.APITimeout)
	if err != nil {
		return err
	}

	if err := apiClient.Delete(context.Background(), f.ID, f.OwnerKey); err != nil {
		return err
	}

	fmt.Printf("Monitor %d removed\n", f.ID)
	return nil
}

// Trigger runs one batch via the daemon API and prints the summary
func (c command) Trigger(f TriggerFlags) error {
	apiClient, err := reachableClient(f.APIUrl, f.APITimeout)
	if err != nil {
		return err
	}

	sum, err := apiClient.TriggerRun(context.Background(), f.Secret)
	if err != nil {
		return err
	}

	printJSON(sum)
	return nil
}
