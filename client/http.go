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

package client

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/ctaudit/client/backoff"
	"k8s.io/klog/v2"
)

// maxResponseBytes caps a single response body. get-entries responses for a
// full range run to a few tens of megabytes.
const maxResponseBytes = 64 << 20

// HTTPTransport is the default Transport, backed by net/http with retries
// on transport failures.
type HTTPTransport struct {
	// Client defaults to a client with a 30 second timeout.
	Client *http.Client
	// Retries is the number of additional attempts made after a transport
	// failure. Non-2xx responses are never retried.
	Retries int
}

// Fetch implements Transport.
func (t *HTTPTransport) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	bo := backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	var body []byte
	attempts := 0
	err := bo.Retry(ctx, func() error {
		attempts++
		var err error
		body, err = fetchOnce(ctx, client, url)
		if err != nil && attempts <= t.Retries && IsNetworkError(err) {
			klog.V(1).Infof("retrying %s after attempt %d: %v", url, attempts, err)
			return err
		}
		if err != nil {
			return &permanentError{err}
		}
		return nil
	}, func(err error) bool {
		_, permanent := err.(*permanentError)
		return !permanent
	})
	if pe, ok := err.(*permanentError); ok {
		return nil, pe.err
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func fetchOnce(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}
