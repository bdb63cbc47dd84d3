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

// sthmonitor polls the tree heads of every registered log on an interval,
// verifies each head extends the last verified one, and alerts on forks,
// rollbacks and unprovable growth. Metrics are exported for Prometheus.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/ctaudit/audit"
	"github.com/google/ctaudit/client"
	"github.com/google/ctaudit/client/backoff"
	"github.com/google/ctaudit/ctcrypto"
	"github.com/google/ctaudit/loglist"
	"github.com/google/ctaudit/monitoring/prometheus"
	"github.com/google/ctaudit/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

var (
	logList      = flag.String("log_list", "", "Path to a v3 log_list.json naming the logs to monitor")
	logConfig    = flag.String("log_config", "", "Path to a YAML log configuration (alternative to --log_list)")
	storeDir     = flag.String("store_dir", "", "Directory for persisted per-log state")
	redisServer  = flag.String("redis", "", "Redis address for shared per-log state (overrides --store_dir)")
	redisPrefix  = flag.String("redis_prefix", "", "Key prefix for Redis state")
	pollInterval = flag.Duration("poll_interval", 5*time.Minute, "How often each log's tree head is fetched")
	pollTimeout  = flag.Duration("poll_timeout", 30*time.Second, "Deadline for one tree head check")
	metricsAddr  = flag.String("metrics_addr", ":8093", "Address to serve /metrics on; empty disables")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	registry, err := loadRegistry()
	if err != nil {
		klog.Exitf("Loading log registry: %v", err)
	}
	store, err := openStore()
	if err != nil {
		klog.Exitf("Opening state store: %v", err)
	}

	mf := prometheus.MetricFactory{Prefix: "sthmonitor_"}
	verifier := ctcrypto.NewVerifier(registry)
	tracker := audit.NewTracker(verifier, store, mf)
	transport := &client.HTTPTransport{Retries: 2}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			klog.Infof("Serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				klog.Errorf("Metrics server: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, log := range registry.Logs() {
		log := log
		g.Go(func() error {
			monitorLog(gctx, log, tracker, transport)
			return nil
		})
	}
	klog.Infof("Monitoring %d logs every %v", len(registry.Logs()), *pollInterval)
	_ = g.Wait()
	klog.Info("Shutting down")
}

// monitorLog polls one log until ctx is done. Transport failures back off
// exponentially; integrity failures are alerted every poll until the log
// recovers or is pulled.
func monitorLog(ctx context.Context, log *loglist.Log, tracker *audit.Tracker, transport client.Transport) {
	lc := client.New(log.URL, transport)
	bo := backoff.Backoff{
		Min:    *pollInterval,
		Max:    4 * *pollInterval,
		Factor: 2,
		Jitter: true,
	}

	for {
		wait := checkOnce(ctx, log, lc, tracker, &bo)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// checkOnce fetches and submits one tree head, returning how long to wait
// before the next poll.
func checkOnce(ctx context.Context, log *loglist.Log, lc *client.LogClient, tracker *audit.Tracker, bo *backoff.Backoff) time.Duration {
	cctx, cancel := context.WithTimeout(ctx, *pollTimeout)
	defer cancel()

	sth, err := lc.GetSTH(cctx)
	if err != nil {
		klog.Warningf("%s: fetching tree head: %v", log.Description, err)
		return bo.Duration()
	}
	err = tracker.Observe(cctx, log.ID, sth, lc.GetSTHConsistency)
	switch {
	case err == nil:
		bo.Reset()
		klog.V(1).Infof("%s: verified head at size %d", log.Description, sth.TreeSize)
		return *pollInterval
	case errors.Is(err, audit.ErrLogFork),
		errors.Is(err, audit.ErrTreeShrank),
		errors.Is(err, audit.ErrConsistencyProofInvalid):
		klog.Errorf("ALERT %s: %v", log.Description, err)
		return *pollInterval
	}
	klog.Warningf("%s: %v", log.Description, err)
	return bo.Duration()
}

func loadRegistry() (*loglist.Registry, error) {
	switch {
	case *logList != "" && *logConfig != "":
		return nil, errors.New("--log_list and --log_config are mutually exclusive")
	case *logList != "":
		return loglist.ReadLogListFile(*logList)
	case *logConfig != "":
		return loglist.ReadYAMLFile(*logConfig)
	}
	return nil, errors.New("one of --log_list or --log_config is required")
}

func openStore() (storage.Store, error) {
	if *redisServer != "" {
		c := redis.NewClient(&redis.Options{Addr: *redisServer})
		if err := c.Ping().Err(); err != nil {
			return nil, err
		}
		return storage.NewRedisStore(c, *redisPrefix), nil
	}
	if *storeDir != "" {
		return storage.NewFileStore(*storeDir)
	}
	return storage.NewMemoryStore(), nil
}
