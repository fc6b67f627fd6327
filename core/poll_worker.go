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
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"disfetch/metrics"
)

const (
	workerCreated int32 = iota
	workerRunning
	workerShuttingDown
	workerStopped
)

// commitRequest is one pending offset commit handed to the
// worker by the commit coordinator.
type commitRequest struct {
	offsets  map[TopicPartition]int64
	callback CommitCallback
}

// PollWorker owns the connection to the remote service. It runs
// a loop of poll, execute pending commit, push batch into the
// Handover. It is the only goroutine permitted to call into the
// PollingClient.
//
// The commit mailbox holds at most one pending request. Storing
// over a not yet executed request replaces it; only the most
// recent offsets matter, older commits are subsumed by newer
// ones for the same partition.
type PollWorker struct {
	client      PollingClient
	handover    *Handover
	pollTimeout time.Duration

	state   atomic.Int32
	pending atomic.Pointer[commitRequest]

	awaiter       *Awaiter
	awaitNotifier *AwaitNotifier
	metrics       *metrics.Metrics
	logFields     log.Fields
}

func NewPollWorker(client PollingClient, handover *Handover, pollTimeout time.Duration, m *metrics.Metrics) *PollWorker {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	awaiter, awaitNotifier := NewAwaiter()
	return &PollWorker{
		client:        client,
		handover:      handover,
		pollTimeout:   pollTimeout,
		awaiter:       awaiter,
		awaitNotifier: awaitNotifier,
		metrics:       m,
		logFields:     log.Fields{"module": "poll_worker"},
	}
}

// Start launches the worker goroutine. Calling it more than
// once, or after Shutdown, is a no-op.
func (w *PollWorker) Start() {
	if !w.state.CompareAndSwap(workerCreated, workerRunning) {
		return
	}
	log.WithFields(w.logFields).Info("poll worker started")
	go w.run()
}

// Shutdown cooperatively terminates the worker: it marks the
// worker for termination and closes the Handover so a worker
// blocked in Produce wakes immediately. A worker blocked in a
// network poll notices within one poll timeout. Idempotent.
func (w *PollWorker) Shutdown() {
	for {
		switch s := w.state.Load(); s {
		case workerShuttingDown, workerStopped:
			return
		case workerCreated:
			// The worker never ran; complete its lifecycle here
			// so joiners are not left waiting.
			if w.state.CompareAndSwap(workerCreated, workerStopped) {
				w.handover.Close()
				if err := w.client.Close(); err != nil {
					log.WithFields(w.logFields).WithField("err", err).Warn("error closing remote client")
				}
				w.awaitNotifier.Notify(nil)
				return
			}
		case workerRunning:
			if w.state.CompareAndSwap(workerRunning, workerShuttingDown) {
				w.handover.Close()
				return
			}
		default:
			log.WithFields(w.logFields).Warnf("unexpected worker state %d", s)
			return
		}
	}
}

// Awaiter joins the worker's terminal transition.
func (w *PollWorker) Awaiter() *Awaiter {
	return w.awaiter
}

// SetOffsetsToCommit records the work to be committed on the
// worker's next loop iteration. Last write wins: a request that
// is replaced before execution never sees its callback invoked.
func (w *PollWorker) SetOffsetsToCommit(offsets map[TopicPartition]int64, callback CommitCallback) {
	request := &commitRequest{offsets: offsets, callback: callback}
	if previous := w.pending.Swap(request); previous != nil {
		log.WithFields(w.logFields).Warn("commit request superseded before execution")
	}
}

func (w *PollWorker) run() {
	var fault error

	for w.state.Load() == workerRunning {
		sw := NewStopwatch()

		batch, err := w.client.Poll(w.pollTimeout)
		sw.Lap("poll")
		if err != nil {
			// Unrecoverable client error: poison the handover
			// so the emission loop observes the exact fault.
			fault = err
			if reportErr := w.handover.ReportError(err); reportErr != nil {
				log.WithFields(w.logFields).WithField("err", err).Warn("fault lost: handover is already closed")
			}
			break
		}

		w.executePendingCommit()
		sw.Lap("commit")

		if err := w.handover.Produce(batch); err != nil {
			// ErrHandoverClosed: shutdown in progress.
			break
		}
		sw.Lap("handover")

		if batch.Size() > 0 {
			log.WithFields(w.logFields).WithFields(log.Fields{"records": batch.Size(), "duration_parts": sw.Laps}).Debug("batch produced")
		}
	}

	w.state.Store(workerStopped)
	w.handover.Close()

	if err := w.client.Close(); err != nil {
		log.WithFields(w.logFields).WithField("err", err).Warn("error closing remote client")
	}

	log.WithFields(w.logFields).WithField("err", fault).Info("poll worker stopped")
	w.awaitNotifier.Notify(fault)
}

func (w *PollWorker) executePendingCommit() {
	request := w.pending.Swap(nil)
	if request == nil {
		return
	}

	started := time.Now()
	err := w.client.CommitOffsets(request.offsets)
	w.metrics.ObserveCommit(time.Since(started), err)

	if err != nil {
		log.WithFields(w.logFields).WithField("err", err).Warn("offset commit failed")
	} else {
		log.WithFields(w.logFields).WithField("partitions", len(request.offsets)).Debug("offsets committed")
	}

	if request.callback != nil {
		request.callback(err)
	}
}
