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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryEnumerationOrderIsStable(t *testing.T) {
	registry := NewPartitionRegistry(map[StreamPartition]int64{
		{Stream: "b", Partition: 0}: 1,
		{Stream: "a", Partition: 2}: 2,
		{Stream: "a", Partition: 0}: 3,
		{Stream: "a", Partition: 1}: 4,
	}, nil)

	var order []StreamPartition
	for _, s := range registry.States() {
		order = append(order, s.Partition())
	}

	assert.Equal(t, []StreamPartition{
		{Stream: "a", Partition: 0},
		{Stream: "a", Partition: 1},
		{Stream: "a", Partition: 2},
		{Stream: "b", Partition: 0},
	}, order)
}

func TestRegistryLookup(t *testing.T) {
	p := StreamPartition{Stream: "s", Partition: 3}
	registry := NewPartitionRegistry(map[StreamPartition]int64{p: 7}, nil)

	state, ok := registry.Lookup(p)
	assert.True(t, ok)
	assert.Equal(t, int64(7), state.Offset())
	assert.Equal(t, TopicPartition{Topic: "s", Partition: 3}, state.Handle())

	_, ok = registry.Lookup(StreamPartition{Stream: "s", Partition: 4})
	assert.False(t, ok)
}

func TestRegistrySnapshots(t *testing.T) {
	p0 := StreamPartition{Stream: "s", Partition: 0}
	p1 := StreamPartition{Stream: "s", Partition: 1}
	registry := NewPartitionRegistry(map[StreamPartition]int64{p0: 5, p1: OffsetNotSet}, nil)

	s0, _ := registry.Lookup(p0)
	s0.SetOffset(8)
	s0.SetCommittedOffset(9)

	assert.Equal(t, map[StreamPartition]int64{p0: 8, p1: OffsetNotSet}, registry.CurrentOffsets())
	assert.Equal(t, map[StreamPartition]int64{p0: 9, p1: OffsetNotSet}, registry.CommittedOffsets())
}

func TestMinWatermarkHeldBackByQuietPartition(t *testing.T) {
	p0 := StreamPartition{Stream: "s", Partition: 0}
	p1 := StreamPartition{Stream: "s", Partition: 1}
	registry := NewPartitionRegistry(map[StreamPartition]int64{p0: 0, p1: 0}, nil)

	s0, _ := registry.Lookup(p0)
	s0.WatermarkState().CurrentWatermark = 100

	_, advanced := registry.MinWatermark()
	assert.False(t, advanced)

	s1, _ := registry.Lookup(p1)
	s1.WatermarkState().CurrentWatermark = 40

	wm, advanced := registry.MinWatermark()
	assert.True(t, advanced)
	assert.Equal(t, int64(40), wm.Timestamp)

	// No advance without movement.
	_, advanced = registry.MinWatermark()
	assert.False(t, advanced)

	s1.WatermarkState().CurrentWatermark = 70
	wm, advanced = registry.MinWatermark()
	assert.True(t, advanced)
	assert.Equal(t, int64(70), wm.Timestamp)
}

func TestCustomHandleFactory(t *testing.T) {
	p := StreamPartition{Stream: "s", Partition: 1}
	registry := NewPartitionRegistry(map[StreamPartition]int64{p: 0}, func(p StreamPartition) TopicPartition {
		return TopicPartition{Topic: "prefix." + p.Stream, Partition: p.Partition}
	})

	state, _ := registry.Lookup(p)
	assert.Equal(t, TopicPartition{Topic: "prefix.s", Partition: 1}, state.Handle())
}
