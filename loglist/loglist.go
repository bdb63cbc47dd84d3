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

// Package loglist maintains the set of known Certificate Transparency logs
// and their public keys. Logs are loaded either from the JSON log list
// format published by user agents or from a local YAML configuration.
package loglist

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/ctaudit/types"
	"gopkg.in/yaml.v2"
)

// Log describes one known CT log.
type Log struct {
	// Description is the operator's human-readable name for the log.
	Description string
	// URL is the log's base URL, always with a trailing slash.
	URL string
	// DER is the log's public key in DER-encoded SubjectPublicKeyInfo form.
	DER []byte
	// PublicKey is the parsed form of DER.
	PublicKey crypto.PublicKey
	// ID is the SHA-256 hash of DER.
	ID types.LogID
	// MMD is the log's maximum merge delay.
	MMD time.Duration
}

// NewLog builds a Log from its description, base URL and DER public key,
// deriving the log ID and normalizing the URL.
func NewLog(description, url string, der []byte, mmd time.Duration) (*Log, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("log %q: parsing public key: %v", description, err)
	}
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return &Log{
		Description: description,
		URL:         url,
		DER:         der,
		PublicKey:   pub,
		ID:          types.LogIDFromPublicKeyDER(der),
		MMD:         mmd,
	}, nil
}

// Registry indexes known logs by their log ID. It is immutable once built
// and safe for concurrent use.
type Registry struct {
	logs map[types.LogID]*Log
}

// NewRegistry builds a Registry from the given logs. Duplicate log IDs are
// rejected.
func NewRegistry(logs []*Log) (*Registry, error) {
	m := make(map[types.LogID]*Log, len(logs))
	for _, l := range logs {
		if dup, ok := m[l.ID]; ok {
			return nil, fmt.Errorf("logs %q and %q share log ID %s", dup.Description, l.Description, l.ID)
		}
		m[l.ID] = l
	}
	return &Registry{logs: m}, nil
}

// Lookup returns the log registered under id, or nil if none is known.
func (r *Registry) Lookup(id types.LogID) *Log {
	return r.logs[id]
}

// PublicKey implements ctcrypto.KeySource.
func (r *Registry) PublicKey(id types.LogID) (crypto.PublicKey, bool) {
	l, ok := r.logs[id]
	if !ok {
		return nil, false
	}
	return l.PublicKey, true
}

// Logs returns all registered logs in unspecified order.
func (r *Registry) Logs() []*Log {
	out := make([]*Log, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l)
	}
	return out
}

// yamlConfig is the shape of a local log configuration file.
type yamlConfig struct {
	Logs []yamlLog `yaml:"logs"`
}

type yamlLog struct {
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	// Key is the base64 DER public key.
	Key string `yaml:"key"`
	// MMDSeconds defaults to 24 hours when zero.
	MMDSeconds int `yaml:"mmd"`
}

// ReadYAMLFile loads a Registry from a YAML log configuration file.
func ReadYAMLFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return reg, nil
}

// ParseYAML builds a Registry from YAML log configuration data.
func ParseYAML(data []byte) (*Registry, error) {
	var cfg yamlConfig
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing log config: %v", err)
	}
	if len(cfg.Logs) == 0 {
		return nil, fmt.Errorf("log config defines no logs")
	}
	logs := make([]*Log, 0, len(cfg.Logs))
	for i, yl := range cfg.Logs {
		der, err := base64.StdEncoding.DecodeString(yl.Key)
		if err != nil {
			return nil, fmt.Errorf("log %d (%q): decoding key: %v", i, yl.Description, err)
		}
		mmd := time.Duration(yl.MMDSeconds) * time.Second
		if mmd == 0 {
			mmd = 24 * time.Hour
		}
		l, err := NewLog(yl.Description, yl.URL, der, mmd)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return NewRegistry(logs)
}
