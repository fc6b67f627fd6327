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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"disfetch/utils"
)

type recordingCommitter struct {
	mutex    sync.Mutex
	requests []map[StreamPartition]int64
}

func (c *recordingCommitter) CommitOffsets(offsets map[StreamPartition]int64, callback CommitCallback) error {
	c.mutex.Lock()
	c.requests = append(c.requests, offsets)
	c.mutex.Unlock()
	if callback != nil {
		callback(nil)
	}
	return nil
}

func (c *recordingCommitter) Requests() []map[StreamPartition]int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]map[StreamPartition]int64{}, c.requests...)
}

func TestPeriodicCommit(t *testing.T) {
	p0 := StreamPartition{Stream: "s", Partition: 0}
	registry := NewPartitionRegistry(map[StreamPartition]int64{p0: 12}, nil)

	tc := utils.NewTestClock()
	after := make(chan time.Time)
	committer := &recordingCommitter{}

	ticker := NewCommitTicker(committer, registry, time.Second*10, tc.Now, after)
	ticker.Start()

	// Not enough time elapsed yet.
	after <- tc.Now()
	// Past the interval now.
	after <- tc.Advance(time.Second * 11)

	ticker.Stop()
	<-ticker.Awaiter().Done()

	assert.Equal(t, []map[StreamPartition]int64{{p0: 12}}, committer.Requests())
}

func TestTickerSkipsUnconsumedPartitions(t *testing.T) {
	p0 := StreamPartition{Stream: "s", Partition: 0}
	p1 := StreamPartition{Stream: "s", Partition: 1}
	registry := NewPartitionRegistry(map[StreamPartition]int64{p0: 3, p1: OffsetNotSet}, nil)

	tc := utils.NewTestClock()
	after := make(chan time.Time)
	committer := &recordingCommitter{}

	ticker := NewCommitTicker(committer, registry, time.Second*10, tc.Now, after)
	ticker.Start()

	after <- tc.Advance(time.Second * 11)

	ticker.Stop()
	<-ticker.Awaiter().Done()

	assert.Equal(t, []map[StreamPartition]int64{{p0: 3}}, committer.Requests())
}

func TestTickerWithNothingToCommit(t *testing.T) {
	p0 := StreamPartition{Stream: "s", Partition: 0}
	registry := NewPartitionRegistry(map[StreamPartition]int64{p0: OffsetNotSet}, nil)

	tc := utils.NewTestClock()
	after := make(chan time.Time)
	committer := &recordingCommitter{}

	ticker := NewCommitTicker(committer, registry, time.Second*10, tc.Now, after)
	ticker.Start()

	after <- tc.Advance(time.Second * 11)

	ticker.Stop()
	<-ticker.Awaiter().Done()

	assert.Empty(t, committer.Requests())
}
