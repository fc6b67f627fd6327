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
	"time"
)

// NoTimestamp marks a record whose source did not supply
// an event timestamp.
const NoTimestamp int64 = -1

// OffsetNotSet marks a partition position that has not been
// established yet. The magic number lives outside the range
// of the remote service's own seek sentinels so the two can
// never be confused.
const OffsetNotSet int64 = -915623761776

// StreamPartition identifies one partition of a stream as the
// application knows it. It is a value type and can be used as
// a map key.
type StreamPartition struct {
	Stream    string
	Partition int32
}

// TopicPartition is the client-native handle for a partition.
// The remote service exposes streams through a Kafka compatible
// adapter, so handles follow the topic/partition shape.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// PartitionHandleFactory converts a StreamPartition into the
// handle used to talk to the remote client about it.
type PartitionHandleFactory func(StreamPartition) TopicPartition

// DefaultPartitionHandleFactory maps stream names to topic
// names one to one.
func DefaultPartitionHandleFactory(p StreamPartition) TopicPartition {
	return TopicPartition{Topic: p.Stream, Partition: p.Partition}
}

// Record is one raw record as delivered by the remote client.
// Timestamp is in epoch milliseconds, or NoTimestamp.
type Record struct {
	Key       []byte
	Value     []byte
	Offset    int64
	Timestamp int64
}

// Batch is one delivery unit of records spanning possibly
// multiple partitions, produced by one poll cycle. A batch is
// immutable after construction and travels through the
// Handover exactly once.
type Batch struct {
	records map[TopicPartition][]*Record
	size    int
}

func NewBatch(records map[TopicPartition][]*Record) *Batch {
	size := 0
	for _, rs := range records {
		size += len(rs)
	}
	return &Batch{records: records, size: size}
}

// Records returns the records of the given partition in source
// order. A partition absent from the batch contributes zero
// records.
func (b *Batch) Records(handle TopicPartition) []*Record {
	return b.records[handle]
}

// Size is the total number of records across all partitions.
func (b *Batch) Size() int {
	return b.size
}

// PollingClient is the connection to the remote partitioned
// stream service. Exactly one goroutine (the PollWorker) is
// permitted to call into it.
type PollingClient interface {
	// Poll performs one bounded network read. A quiet timeout
	// yields an empty batch, not an error. Any error returned
	// is fatal to the fetch session.
	Poll(timeout time.Duration) (*Batch, error)
	// CommitOffsets synchronously acknowledges the given
	// offsets to the remote service. Values follow the
	// "next offset to resume from" convention.
	CommitOffsets(offsets map[TopicPartition]int64) error
	Close() error
}

// Deserializer converts raw record bytes into application
// values and decides whether a value signals the end of the
// stream.
type Deserializer[T any] interface {
	Deserialize(key, value []byte, stream string, partition int32, offset int64) (T, error)
	IsEndOfStream(value T) bool
}

// Collector is the downstream emission target. Both methods
// are invoked only from the emission goroutine.
type Collector[T any] interface {
	Collect(value T, timestamp int64)
	EmitWatermark(watermark Watermark)
}

// CommitCallback reports the outcome of one executed offset
// commit. It is invoked exactly once per executed request, on
// the PollWorker's goroutine.
type CommitCallback func(error)

// Config of common knobs.
type Config struct {
	PollTimeout         time.Duration
	CommitInterval      time.Duration
	RetryCount          int
	RetryDelay          time.Duration
	HandlerURL          string
	HandlerCommand      string
	HandlerArgs         []string
	StartupDelaySeconds int
	MetricsPort         int
	EnableVerboseLog    bool
}

// DefaultPollTimeout bounds a single network poll when the
// configuration does not say otherwise.
const DefaultPollTimeout = 100 * time.Millisecond
