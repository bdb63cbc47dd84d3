// Copyright 2025 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package client speaks the RFC 6962 4.x HTTP API to a Certificate
// Transparency log.
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/ctaudit/types"
)

// ErrProofNotFound means the log answered the query but has no proof for
// the requested leaf, typically because the leaf was never incorporated.
var ErrProofNotFound = errors.New("log has no proof for leaf")

// NetworkError wraps a transport-level failure reaching a log. Callers use
// it to distinguish unreachable logs from misbehaving ones.
type NetworkError struct {
	URL string
	Err error
}

// Error implements error.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

// Unwrap supports errors.Is and errors.As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err stems from a transport failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusError is an HTTP response with a non-2xx status code.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.URL, e.StatusCode)
}

// Transport fetches a URL and returns the response body. Implementations
// return *NetworkError for transport failures and *StatusError for non-2xx
// responses.
type Transport interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// LogClient issues RFC 6962 queries against one log.
type LogClient struct {
	baseURL   string
	transport Transport
}

// New creates a LogClient for the log at baseURL.
func New(baseURL string, transport Transport) *LogClient {
	if baseURL != "" && baseURL[len(baseURL)-1] != '/' {
		baseURL += "/"
	}
	return &LogClient{baseURL: baseURL, transport: transport}
}

// BaseURL returns the log's base URL.
func (c *LogClient) BaseURL() string {
	return c.baseURL
}

func (c *LogClient) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + "ct/v1/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	body, err := c.transport.Fetch(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: malformed response: %v", u, err)
	}
	return nil
}

// GetSTH fetches the log's current signed tree head (RFC 6962 4.3).
func (c *LogClient) GetSTH(ctx context.Context) (*types.SignedTreeHead, error) {
	sth := new(types.SignedTreeHead)
	if err := c.getJSON(ctx, "get-sth", nil, sth); err != nil {
		return nil, err
	}
	return sth, nil
}

type getConsistencyResponse struct {
	Consistency [][]byte `json:"consistency"`
}

// GetSTHConsistency fetches a consistency proof between the tree sizes
// first and second (RFC 6962 4.4).
func (c *LogClient) GetSTHConsistency(ctx context.Context, first, second uint64) ([][]byte, error) {
	params := url.Values{}
	params.Set("first", fmt.Sprintf("%d", first))
	params.Set("second", fmt.Sprintf("%d", second))
	var resp getConsistencyResponse
	if err := c.getJSON(ctx, "get-sth-consistency", params, &resp); err != nil {
		return nil, err
	}
	return resp.Consistency, nil
}

type getProofByHashResponse struct {
	LeafIndex uint64   `json:"leaf_index"`
	AuditPath [][]byte `json:"audit_path"`
}

// GetProofByHash fetches an inclusion proof for the leaf with the given
// Merkle hash in the tree of the given size (RFC 6962 4.5). It returns
// ErrProofNotFound when the log reports the leaf unknown.
func (c *LogClient) GetProofByHash(ctx context.Context, leafHash []byte, treeSize uint64) (uint64, [][]byte, error) {
	params := url.Values{}
	params.Set("hash", base64.StdEncoding.EncodeToString(leafHash))
	params.Set("tree_size", fmt.Sprintf("%d", treeSize))
	var resp getProofByHashResponse
	if err := c.getJSON(ctx, "get-proof-by-hash", params, &resp); err != nil {
		// Logs answer 4xx when the leaf hash is not (yet) in the tree.
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
			return 0, nil, fmt.Errorf("%w: %v", ErrProofNotFound, err)
		}
		return 0, nil, err
	}
	return resp.LeafIndex, resp.AuditPath, nil
}

// LeafEntry is one entry of a get-entries response.
type LeafEntry struct {
	// LeafInput is the serialized MerkleTreeLeaf.
	LeafInput []byte `json:"leaf_input"`
	// ExtraData holds the rest of the chain the entry was submitted with.
	ExtraData []byte `json:"extra_data"`
}

type getEntriesResponse struct {
	Entries []LeafEntry `json:"entries"`
}

// GetEntries fetches the log entries in the range [start, end] inclusive
// (RFC 6962 4.6). The log may return fewer entries than requested.
func (c *LogClient) GetEntries(ctx context.Context, start, end uint64) ([]LeafEntry, error) {
	if start > end {
		return nil, fmt.Errorf("invalid range [%d, %d]", start, end)
	}
	params := url.Values{}
	params.Set("start", fmt.Sprintf("%d", start))
	params.Set("end", fmt.Sprintf("%d", end))
	var resp getEntriesResponse
	if err := c.getJSON(ctx, "get-entries", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Entries) == 0 {
		return nil, fmt.Errorf("log returned no entries for [%d, %d]", start, end)
	}
	if uint64(len(resp.Entries)) > end-start+1 {
		return nil, fmt.Errorf("log returned %d entries for [%d, %d]", len(resp.Entries), start, end)
	}
	return resp.Entries, nil
}
