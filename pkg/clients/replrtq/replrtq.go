// Package replrtq provides two implementations of the replication queue
// sink the Repair Decider hands repair entries to: an HTTP-backed queue
// for talking to a real replication-queue service, and an in-memory FIFO
// for tests and single-node deployments with no external queue.
//
// Requeueing (rather than replicating directly to the exchange's sink)
// funnels changes through the cluster's general replication path so they
// fan out to every destination cluster, not just the one sink that
// happened to participate in this exchange.
package replrtq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/aaesync/pkg/clients"
)

// HTTPQueue posts repair entries to a replication-queue HTTP endpoint.
type HTTPQueue struct {
	baseURL string
	client  *http.Client
}

// NewHTTPQueue creates a queue client against the given base URL.
func NewHTTPQueue(baseURL string) *HTTPQueue {
	return &HTTPQueue{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (q *HTTPQueue) Enqueue(ctx context.Context, queueName string, entries []clients.RepairEntry) error {
	if len(entries) == 0 {
		return nil
	}

	payload, err := json.Marshal(struct {
		Queue   string                `json:"queue"`
		Entries []clients.RepairEntry `json:"entries"`
	}{Queue: queueName, Entries: entries})
	if err != nil {
		return fmt.Errorf("marshal enqueue payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL+"/enqueue", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build enqueue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("enqueue to %s: %w", queueName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("enqueue to %s: unexpected status %d", queueName, resp.StatusCode)
	}
	return nil
}

// LocalQueue is an in-memory FIFO replication queue, grounded on the same
// channel-free, mutex-guarded fan-in shape as the teacher's event broker.
// Useful for tests and for single-node deployments with no external
// replication-queue service.
type LocalQueue struct {
	mu      sync.Mutex
	entries map[string][]clients.RepairEntry
}

// NewLocalQueue creates an empty in-memory queue.
func NewLocalQueue() *LocalQueue {
	return &LocalQueue{entries: make(map[string][]clients.RepairEntry)}
}

func (q *LocalQueue) Enqueue(ctx context.Context, queueName string, entries []clients.RepairEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[queueName] = append(q.entries[queueName], entries...)
	return nil
}

// Drain returns and clears everything enqueued under queueName, for tests
// and diagnostics.
func (q *LocalQueue) Drain(queueName string) []clients.RepairEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.entries[queueName]
	delete(q.entries, queueName)
	return entries
}
