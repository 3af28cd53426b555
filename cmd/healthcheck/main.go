// Package main provides a minimal HTTP healthcheck binary for container
// probes. It exits 0 when the URL answers 2xx and 1 otherwise.
// Usage: healthcheck [url]; the default is $HUB_HEALTHCHECK_URL or
// http://localhost:8080/readyz.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultURL = "http://localhost:8080/readyz"

func targetURL(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	if u := os.Getenv("HUB_HEALTHCHECK_URL"); u != "" {
		return u
	}
	return defaultURL
}

func check(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func main() {
	client := &http.Client{Timeout: 5 * time.Second}
	if err := check(client, targetURL(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck failed: %v\n", err)
		os.Exit(1)
	}
}
