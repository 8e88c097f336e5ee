package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cuemby/aaesync/pkg/health"
	"github.com/cuemby/aaesync/pkg/types"
)

// defaultClientTimeout bounds any single HTTP call the AAE client makes;
// the driver-level crash timeout is a separate, much longer concern.
const defaultClientTimeout = 10 * time.Second

// HTTPAAEClient talks to a remote cluster's AAE HTTP surface. One is
// opened per exchange and never pooled, per the coordinator's resource
// model: no shared mutable connection state across exchanges.
type HTTPAAEClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAAEClient opens an HTTP client against the given endpoint.
func NewHTTPAAEClient(ep types.Endpoint) *HTTPAAEClient {
	return &HTTPAAEClient{
		baseURL: fmt.Sprintf("%s://%s:%d", ep.Protocol, ep.IP, ep.Port),
		client:  &http.Client{Timeout: defaultClientTimeout},
	}
}

func (c *HTTPAAEClient) Close() error { return nil }

// Ping checks cluster reachability with the same HTTPChecker used for the
// coordinator's own readiness probes, rather than a hand-rolled GET.
func (c *HTTPAAEClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultClientTimeout)
	defer cancel()

	checker := health.NewHTTPChecker(c.baseURL + "/ping").WithTimeout(defaultClientTimeout)
	result := checker.Check(ctx)
	if !result.Healthy {
		return fmt.Errorf("ping %s: %s", c.baseURL, result.Message)
	}
	return nil
}

func (c *HTTPAAEClient) MergeRoot(ctx context.Context, nval int) ([]byte, error) {
	var out struct {
		Root []byte `json:"root"`
	}
	if err := c.post(ctx, "/aae/merge_root", map[string]any{"nval": nval}, &out); err != nil {
		return nil, err
	}
	return out.Root, nil
}

func (c *HTTPAAEClient) MergeBranches(ctx context.Context, nval int, branchIDs []int) ([][]byte, error) {
	var out struct {
		Branches [][]byte `json:"branches"`
	}
	if err := c.post(ctx, "/aae/merge_branches", map[string]any{"nval": nval, "branch_ids": branchIDs}, &out); err != nil {
		return nil, err
	}
	return out.Branches, nil
}

func (c *HTTPAAEClient) FetchClocks(ctx context.Context, nval int, segmentIDs []int) ([]KeyClock, error) {
	var out struct {
		Clocks []KeyClock `json:"clocks"`
	}
	if err := c.post(ctx, "/aae/fetch_clocks", map[string]any{"nval": nval, "segment_ids": segmentIDs}, &out); err != nil {
		return nil, err
	}
	return out.Clocks, nil
}

func (c *HTTPAAEClient) RangeTree(ctx context.Context, bucket types.BucketID, keyRange *KeyRange, treeSize TreeSize, segFilter SegmentFilter, modRange *ModRange, hashMethod string) (Tree, error) {
	var out struct {
		Tree []byte `json:"tree"`
	}
	body := map[string]any{
		"bucket":      bucket.Bucket,
		"bucket_type": bucket.BucketType,
		"key_range":   keyRange,
		"tree_size":   treeSize,
		"seg_filter":  segFilter,
		"mod_range":   modRange,
		"hash_method": hashMethod,
	}
	if err := c.post(ctx, "/aae/range_tree", body, &out); err != nil {
		return Tree{}, err
	}
	return Tree{Opaque: out.Tree}, nil
}

func (c *HTTPAAEClient) RangeClocks(ctx context.Context, bucket types.BucketID, keyRange *KeyRange, segFilter SegmentFilter, modRange *ModRange) ([]KeyClock, error) {
	var out struct {
		Clocks []KeyClock `json:"clocks"`
	}
	body := map[string]any{
		"bucket":      bucket.Bucket,
		"bucket_type": bucket.BucketType,
		"key_range":   keyRange,
		"seg_filter":  segFilter,
		"mod_range":   modRange,
	}
	if err := c.post(ctx, "/aae/range_clocks", body, &out); err != nil {
		return nil, err
	}
	return out.Clocks, nil
}

func (c *HTTPAAEClient) post(ctx context.Context, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultClientTimeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("call %s: status %d: %s", path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
