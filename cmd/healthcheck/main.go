// Command healthcheck probes a running bankster server for container health
// checks. It exits 0 when the API reports status "ok" and 1 otherwise.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

const probeTimeout = 2 * time.Second

// healthBody is the subset of the health endpoint's response the probe reads.
type healthBody struct {
	Status string `json:"status"`
}

func main() {
	url := "http://" + loopbackAddr(os.Getenv("BANKSTER_LISTEN_ADDR")) + "/api/v1/health"

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := probe(ctx, &http.Client{Timeout: probeTimeout}, url); err != nil {
		fmt.Fprintln(os.Stderr, "unhealthy:", err)
		os.Exit(1)
	}
}

// probe fetches the health endpoint and requires a 200 with status "ok". A
// 503 carries status "unavailable" when the database ping failed.
func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode health response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		return fmt.Errorf("HTTP %d, status %q", resp.StatusCode, body.Status)
	}
	return nil
}

// loopbackAddr maps the server's listen address to one the probe can dial
// from inside the same container: wildcard hosts become 127.0.0.1.
func loopbackAddr(listen string) string {
	const fallback = "127.0.0.1:8080"

	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return fallback
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
