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
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultCommitIntervalSeconds int = 15

// OffsetCommitter accepts asynchronous commit requests. The
// Fetcher implements it.
type OffsetCommitter interface {
	CommitOffsets(offsets map[StreamPartition]int64, callback CommitCallback) error
}

// CommitTicker periodically snapshots the registry's consume
// offsets and requests a commit for them. Commit failures are
// logged and left for the next tick; the ticker never retries
// by itself.
//
// `now` and `after` are injected so tests can drive time.
type CommitTicker struct {
	committer OffsetCommitter
	registry  *PartitionRegistry
	interval  time.Duration

	now            func() time.Time
	after          <-chan time.Time
	lastCommitTime time.Time

	stop          chan struct{}
	stopOnce      sync.Once
	awaiter       *Awaiter
	awaitNotifier *AwaitNotifier
	logFields     log.Fields
}

func NewCommitTicker(committer OffsetCommitter, registry *PartitionRegistry, interval time.Duration, now func() time.Time, after <-chan time.Time) *CommitTicker {
	if interval <= 0 {
		interval = time.Second * time.Duration(DefaultCommitIntervalSeconds)
	}
	awaiter, awaitNotifier := NewAwaiter()
	return &CommitTicker{
		committer:      committer,
		registry:       registry,
		interval:       interval,
		now:            now,
		after:          after,
		lastCommitTime: now(),
		stop:           make(chan struct{}),
		awaiter:        awaiter,
		awaitNotifier:  awaitNotifier,
		logFields:      log.Fields{"module": "commit_ticker"},
	}
}

func (t *CommitTicker) Start() {
	go func() {
		for {
			select {
			case now := <-t.after:
				if now.Sub(t.lastCommitTime) < t.interval {
					continue
				}
				t.requestCommit()
				t.lastCommitTime = t.now()
			case <-t.stop:
				t.awaitNotifier.Notify(nil)
				return
			}
		}
	}()
}

func (t *CommitTicker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
}

func (t *CommitTicker) Awaiter() *Awaiter {
	return t.awaiter
}

func (t *CommitTicker) requestCommit() {
	offsets := t.registry.CurrentOffsets()
	for p, offset := range offsets {
		// Partitions that have not emitted anything yet have
		// nothing to acknowledge.
		if offset == OffsetNotSet {
			delete(offsets, p)
		}
	}
	if len(offsets) == 0 {
		return
	}

	err := t.committer.CommitOffsets(offsets, func(err error) {
		if err != nil {
			log.WithFields(t.logFields).WithField("err", err).Warn("periodic commit failed")
			return
		}
		log.WithFields(t.logFields).WithField("partitions", len(offsets)).Debug("periodic commit completed")
	})
	if err != nil {
		log.WithFields(t.logFields).WithField("err", err).Warn("periodic commit rejected")
	}
}
