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
	"math"
	"sort"
	"sync/atomic"

	"golang.org/x/exp/maps"
)

// PartitionState tracks the progress of one subscribed
// partition. Offsets are atomics: they are written only by the
// emission goroutine (the committed offset through the commit
// coordinator's optimistic update) but may be read by anyone
// for bookkeeping. Watermark sub-state belongs to the emission
// goroutine alone.
type PartitionState struct {
	partition StreamPartition
	handle    TopicPartition

	offset          atomic.Int64
	committedOffset atomic.Int64

	watermark WatermarkState
}

func NewPartitionState(partition StreamPartition, handle TopicPartition, initialOffset int64) *PartitionState {
	s := &PartitionState{
		partition: partition,
		handle:    handle,
		watermark: NewWatermarkState(),
	}
	s.offset.Store(initialOffset)
	s.committedOffset.Store(OffsetNotSet)
	return s
}

func (s *PartitionState) Partition() StreamPartition {
	return s.partition
}

// Handle is the client-native identity of this partition.
func (s *PartitionState) Handle() TopicPartition {
	return s.handle
}

// Offset is the offset of the last record emitted for this
// partition, or OffsetNotSet.
func (s *PartitionState) Offset() int64 {
	return s.offset.Load()
}

func (s *PartitionState) SetOffset(offset int64) {
	s.offset.Store(offset)
}

// CommittedOffset is the last offset value acknowledged to the
// remote service, following the "next offset to resume from"
// convention, or OffsetNotSet before the first commit.
func (s *PartitionState) CommittedOffset() int64 {
	return s.committedOffset.Load()
}

func (s *PartitionState) SetCommittedOffset(offset int64) {
	s.committedOffset.Store(offset)
}

// WatermarkState must only be touched from the emission
// goroutine.
func (s *PartitionState) WatermarkState() *WatermarkState {
	return &s.watermark
}

// PartitionRegistry holds the states of all subscribed
// partitions. The set is fixed at construction; enumeration is
// in sorted (stream, partition) order so that batch iteration
// is deterministic.
type PartitionRegistry struct {
	states []*PartitionState
	index  map[StreamPartition]*PartitionState

	// lastWatermark is the last emitted global watermark.
	// Only the emission goroutine reads or writes it.
	lastWatermark int64
}

func NewPartitionRegistry(initialOffsets map[StreamPartition]int64, createHandle PartitionHandleFactory) *PartitionRegistry {
	if createHandle == nil {
		createHandle = DefaultPartitionHandleFactory
	}

	partitions := maps.Keys(initialOffsets)
	sort.Slice(partitions, func(i, j int) bool {
		if partitions[i].Stream != partitions[j].Stream {
			return partitions[i].Stream < partitions[j].Stream
		}
		return partitions[i].Partition < partitions[j].Partition
	})

	r := &PartitionRegistry{
		index:         make(map[StreamPartition]*PartitionState, len(partitions)),
		lastWatermark: math.MinInt64,
	}
	for _, p := range partitions {
		state := NewPartitionState(p, createHandle(p), initialOffsets[p])
		r.states = append(r.states, state)
		r.index[p] = state
	}
	return r
}

// States enumerates the partition states in their stable order.
// Callers must not modify the returned slice.
func (r *PartitionRegistry) States() []*PartitionState {
	return r.states
}

func (r *PartitionRegistry) Lookup(partition StreamPartition) (*PartitionState, bool) {
	s, ok := r.index[partition]
	return s, ok
}

func (r *PartitionRegistry) Size() int {
	return len(r.states)
}

// CurrentOffsets snapshots the last emitted offset of every
// partition.
func (r *PartitionRegistry) CurrentOffsets() map[StreamPartition]int64 {
	snapshot := make(map[StreamPartition]int64, len(r.states))
	for _, s := range r.states {
		snapshot[s.Partition()] = s.Offset()
	}
	return snapshot
}

// CommittedOffsets snapshots the committed offset bookkeeping
// of every partition.
func (r *PartitionRegistry) CommittedOffsets() map[StreamPartition]int64 {
	snapshot := make(map[StreamPartition]int64, len(r.states))
	for _, s := range r.states {
		snapshot[s.Partition()] = s.CommittedOffset()
	}
	return snapshot
}

// MinWatermark aggregates the per-partition watermarks into the
// global one. It reports true only when every partition has
// produced a watermark and their minimum moved past the last
// emitted global watermark. Must be called from the emission
// goroutine.
func (r *PartitionRegistry) MinWatermark() (Watermark, bool) {
	if len(r.states) == 0 {
		return Watermark{}, false
	}
	min := int64(math.MaxInt64)
	for _, s := range r.states {
		wm := s.watermark.CurrentWatermark
		if wm == math.MinInt64 {
			return Watermark{}, false
		}
		if wm < min {
			min = wm
		}
	}
	if min <= r.lastWatermark {
		return Watermark{}, false
	}
	r.lastWatermark = min
	return Watermark{Timestamp: min}, true
}
