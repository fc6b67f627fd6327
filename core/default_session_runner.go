/*
Copyright © 2020 Disfetch Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package core

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"disfetch/metrics"
)

// DefaultSessionRunner composes a complete fetch session out of
// the core pieces: a raw-message fetcher over the given client
// and registry, a periodic commit ticker, a collector, and
// optionally a managed handler process for the collector to
// deliver to.
type DefaultSessionRunner struct {
	metrics   *metrics.Metrics
	logFields log.Fields
}

func (r *DefaultSessionRunner) Run(ctx context.Context, client PollingClient, registry *PartitionRegistry, config Config) *Awaiter {
	awaiter, awaitNotifier := NewAwaiter()
	go func() {
		handlerURL := config.HandlerURL
		if config.HandlerCommand != "" && handlerURL == "" {
			handlerURL = fmt.Sprintf("http://localhost:%d/", GetFreePort())
		}

		var collector Collector[*RawMessage]
		if handlerURL != "" {
			collector = NewHTTPCollector[*RawMessage](handlerURL, NewRetryPolicy(config.RetryCount, config.RetryDelay))
		} else {
			collector = NewLogCollector[*RawMessage]()
		}

		fetcher := NewFetcher[*RawMessage](client, registry, &RawDeserializer{}, nil, collector, config.PollTimeout, r.metrics)

		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		ticker := NewCommitTicker(fetcher, registry, config.CommitInterval, time.Now, tick.C)
		ticker.Start()

		var sink *SinkProcess
		if config.HandlerCommand != "" {
			sink = NewSinkProcess(config.HandlerCommand, config.HandlerArgs, handlerURL, config.StartupDelaySeconds)
			sink.Start(ctx)
		}

		// Cancellation watcher: context cancellation and handler
		// process exit both terminate the session.
		loopDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
			case <-sinkDone(sink):
				log.WithFields(r.logFields).Info("handler process exited, terminating session")
			case <-loopDone:
			}
			fetcher.Cancel()
		}()

		err := fetcher.RunFetchLoop()
		close(loopDone)

		ticker.Stop()
		<-ticker.Awaiter().Done()

		log.WithFields(r.logFields).WithField("err", err).Info("fetch session exited")
		awaitNotifier.Notify(err)
	}()
	return awaiter
}

// sinkDone is nil-safe so the watcher can select on it whether
// or not a handler process is managed.
func sinkDone(sink *SinkProcess) <-chan struct{} {
	if sink == nil {
		return nil
	}
	return sink.Awaiter.Done()
}

func NewDefaultSessionRunner(m *metrics.Metrics) *DefaultSessionRunner {
	return &DefaultSessionRunner{
		metrics:   m,
		logFields: log.Fields{"module": "default_session_runner"},
	}
}
