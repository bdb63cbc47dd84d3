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

// ctaudit audits one certificate chain against the Certificate Transparency
// logs that issued its SCTs and reports a safety conclusion. It exits
// nonzero when the conclusion is unsafe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/ctaudit/audit"
	"github.com/google/ctaudit/client"
	"github.com/google/ctaudit/ctcrypto"
	"github.com/google/ctaudit/loglist"
	"github.com/google/ctaudit/monitoring"
	"github.com/google/ctaudit/storage"
	"github.com/google/ctaudit/x509ext"
	"k8s.io/klog/v2"
)

var (
	logList     = flag.String("log_list", "", "Path to a v3 log_list.json naming the trusted logs")
	logConfig   = flag.String("log_config", "", "Path to a YAML log configuration (alternative to --log_list)")
	chainPath   = flag.String("chain", "", "Path to the PEM certificate chain to audit, leaf first")
	storeDir    = flag.String("store_dir", "", "Directory for persisted per-log state; empty keeps state in memory only")
	redisServer = flag.String("redis", "", "Redis address for shared per-log state (overrides --store_dir)")
	redisPrefix = flag.String("redis_prefix", "", "Key prefix for Redis state")
	jsonOut     = flag.Bool("json", false, "Emit the full report as JSON on stdout")
	timeout     = flag.Duration("timeout", 60*time.Second, "Overall deadline for the audit")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if *chainPath == "" {
		klog.Exitf("--chain is required")
	}
	registry, err := loadRegistry()
	if err != nil {
		klog.Exitf("Loading log registry: %v", err)
	}
	store, err := openStore()
	if err != nil {
		klog.Exitf("Opening state store: %v", err)
	}
	chain, err := x509ext.ReadChainFile(*chainPath)
	if err != nil {
		klog.Exitf("Loading chain: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	verifier := ctcrypto.NewVerifier(registry)
	tracker := audit.NewTracker(verifier, store, monitoring.InertMetricFactory{})
	inv := audit.NewInvestigator(registry, tracker, &client.HTTPTransport{Retries: 2}, monitoring.InertMetricFactory{})

	report, err := inv.InvestigateChain(ctx, chain)
	if err != nil {
		klog.Exitf("Auditing chain: %v", err)
	}

	if *jsonOut {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			klog.Exitf("Encoding report: %v", err)
		}
		fmt.Println(string(out))
	} else {
		fmt.Println(report)
	}
	if report.Overall.Verdict == audit.Unsafe {
		os.Exit(2)
	}
}

func loadRegistry() (*loglist.Registry, error) {
	switch {
	case *logList != "" && *logConfig != "":
		return nil, fmt.Errorf("--log_list and --log_config are mutually exclusive")
	case *logList != "":
		return loglist.ReadLogListFile(*logList)
	case *logConfig != "":
		return loglist.ReadYAMLFile(*logConfig)
	}
	return nil, fmt.Errorf("one of --log_list or --log_config is required")
}

func openStore() (storage.Store, error) {
	if *redisServer != "" {
		c := redis.NewClient(&redis.Options{Addr: *redisServer})
		if err := c.Ping().Err(); err != nil {
			return nil, fmt.Errorf("redis %s: %v", *redisServer, err)
		}
		return storage.NewRedisStore(c, *redisPrefix), nil
	}
	if *storeDir != "" {
		return storage.NewFileStore(*storeDir)
	}
	return storage.NewMemoryStore(), nil
}
