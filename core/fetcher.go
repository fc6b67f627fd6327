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

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"disfetch/metrics"
)

const (
	fetcherRunning int32 = iota
	fetcherDraining
	fetcherCancelled
	fetcherStopped
)

// Fetcher is the foreground half of the fetch session. It
// drains batches from the Handover, deserializes and emits
// records with per-partition offset bookkeeping, and acts as
// the commit coordinator between the caller and the PollWorker.
//
// Protocol variants are expressed through two pluggable
// policies rather than subtypes: the TimestampAssigner decides
// event time and watermarks, and the PartitionHandleFactory
// (applied when the registry is built) decides how partitions
// map to client handles.
type Fetcher[T any] struct {
	registry     *PartitionRegistry
	deserializer Deserializer[T]
	assigner     TimestampAssigner[T]
	collector    Collector[T]

	handover *Handover
	worker   *PollWorker

	state atomic.Int32

	metrics   *metrics.Metrics
	logFields log.Fields
}

func NewFetcher[T any](
	client PollingClient,
	registry *PartitionRegistry,
	deserializer Deserializer[T],
	assigner TimestampAssigner[T],
	collector Collector[T],
	pollTimeout time.Duration,
	m *metrics.Metrics,
) *Fetcher[T] {
	handover := NewHandover()
	return &Fetcher[T]{
		registry:     registry,
		deserializer: deserializer,
		assigner:     assigner,
		collector:    collector,
		handover:     handover,
		worker:       NewPollWorker(client, handover, pollTimeout, m),
		metrics:      m,
		logFields:    log.Fields{"module": "fetcher"},
	}
}

// RunFetchLoop runs the emission loop on the caller's goroutine
// until the stream ends, the session is cancelled, or the
// PollWorker reports a fatal error. It always shuts the worker
// down and joins it before returning. A poison error is
// returned verbatim; termination through Cancel or end of
// stream returns nil.
func (f *Fetcher[T]) RunFetchLoop() error {
	f.worker.Start()

	err := f.runFetchLoop()

	// Two phase shutdown: signal, then join. The join swallows
	// the worker's own exit reason because a poisoned handover
	// has already carried it to us.
	f.worker.Shutdown()
	if workerErr := f.worker.Awaiter().Err(); workerErr != nil {
		log.WithFields(f.logFields).WithField("err", workerErr).Debug("poll worker exit reason")
	}

	f.state.Store(fetcherStopped)
	log.WithFields(f.logFields).WithField("err", err).Info("fetch loop stopped")
	return err
}

func (f *Fetcher[T]) runFetchLoop() error {
	for f.state.Load() == fetcherRunning {
		batch, err := f.handover.PollNext()
		if err != nil {
			if errors.Is(err, ErrHandoverClosed) {
				// Graceful shutdown, not a failure.
				return nil
			}
			return err
		}

		f.metrics.ObserveBatch(batch.Size())

		for _, partition := range f.registry.States() {
			for _, record := range batch.Records(partition.Handle()) {
				p := partition.Partition()
				value, err := f.deserializer.Deserialize(record.Key, record.Value, p.Stream, p.Partition, record.Offset)
				if err != nil {
					return errors.Wrapf(err, "deserialize record at offset %d of %s/%d", record.Offset, p.Stream, p.Partition)
				}

				if f.deserializer.IsEndOfStream(value) {
					// The sentinel itself is not emitted and the
					// rest of the batch is abandoned.
					f.state.CompareAndSwap(fetcherRunning, fetcherDraining)
					log.WithFields(f.logFields).WithFields(log.Fields{"stream": p.Stream, "partition": p.Partition, "offset": record.Offset}).Info("end of stream signaled")
					return nil
				}

				f.emitRecord(value, partition, record)
			}
		}
	}
	return nil
}

// emitRecord is one atomic step from the perspective of
// downstream state: event time assignment, collection, offset
// advance and watermark aggregation never interleave with
// another emission for the same partition because all of them
// happen here, on the single emission goroutine.
func (f *Fetcher[T]) emitRecord(value T, partition *PartitionState, record *Record) {
	timestamp := record.Timestamp
	hasWatermark := false
	var partitionWatermark Watermark

	if f.assigner != nil {
		timestamp, partitionWatermark, hasWatermark = f.assigner.AssignTimestamp(value, record.Timestamp, partition.WatermarkState())
	}

	f.collector.Collect(value, timestamp)
	partition.SetOffset(record.Offset)

	p := partition.Partition()
	f.metrics.ObserveRecord(p.Stream, p.Partition, record.Offset)

	if hasWatermark {
		log.WithFields(f.logFields).WithFields(log.Fields{"stream": p.Stream, "partition": p.Partition, "watermark": partitionWatermark.Timestamp}).Debug("partition watermark advanced")
		if global, advanced := f.registry.MinWatermark(); advanced {
			f.collector.EmitWatermark(global)
			f.metrics.ObserveWatermark(global.Timestamp)
		}
	}
}

// Cancel terminates the session from any goroutine. It flips
// the loop state, closes the Handover to unblock a consumer
// stuck in PollNext, and signals the worker to shut down.
// Idempotent; calling it after natural termination is a no-op.
func (f *Fetcher[T]) Cancel() {
	for {
		switch s := f.state.Load(); s {
		case fetcherCancelled, fetcherStopped:
			return
		default:
			if !f.state.CompareAndSwap(s, fetcherCancelled) {
				continue
			}
			f.handover.Close()
			f.worker.Shutdown()
			log.WithFields(f.logFields).Info("fetch loop cancelled")
			return
		}
	}
}

// CommitOffsets is the commit coordinator entry point. For each
// subscribed partition present in the map, the value is the
// last processed offset; the offset handed to the remote
// service is that plus one so a restart resumes after the last
// processed record. The whole request is validated before any
// state is touched. Committed offset bookkeeping is updated
// eagerly, before the remote commit has actually happened; the
// definitive outcome arrives through the callback, on the
// worker's goroutine, exactly once per executed request.
func (f *Fetcher[T]) CommitOffsets(offsets map[StreamPartition]int64, callback CommitCallback) error {
	for p, lastProcessed := range offsets {
		if lastProcessed < 0 {
			return errors.Errorf("illegal offset value to commit for %s/%d: %d", p.Stream, p.Partition, lastProcessed)
		}
	}

	toCommit := make(map[TopicPartition]int64, len(offsets))
	for _, partition := range f.registry.States() {
		lastProcessed, ok := offsets[partition.Partition()]
		if !ok {
			continue
		}

		// Offsets acknowledged to the remote service need to be
		// one more than the last processed offset.
		offsetToCommit := lastProcessed + 1
		partition.SetCommittedOffset(offsetToCommit)
		toCommit[partition.Handle()] = offsetToCommit

		p := partition.Partition()
		f.metrics.ObserveCommittedOffset(p.Stream, p.Partition, offsetToCommit)
	}

	if len(toCommit) == 0 {
		log.WithFields(f.logFields).Debug("commit request matched no subscribed partition")
		return nil
	}

	f.worker.SetOffsetsToCommit(toCommit, callback)
	return nil
}
