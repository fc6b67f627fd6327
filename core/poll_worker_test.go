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
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWorkerProducesBatches(t *testing.T) {
	handle := TopicPartition{Topic: "s", Partition: 0}
	b := testBatch(handle, 1, 2)
	client := &scriptedClient{batches: []*Batch{b}}
	handover := NewHandover()

	worker := NewPollWorker(client, handover, time.Millisecond, nil)
	worker.Start()

	got, err := handover.PollNext()
	assert.NoError(t, err)
	assert.Same(t, b, got)

	worker.Shutdown()
	assert.NoError(t, worker.Awaiter().Err())
}

func TestWorkerPoisonsHandoverOnPollError(t *testing.T) {
	fault := errors.New("connection lost")
	client := &scriptedClient{pollErr: fault}
	handover := NewHandover()

	worker := NewPollWorker(client, handover, time.Millisecond, nil)
	worker.Start()

	_, err := handover.PollNext()
	assert.ErrorIs(t, err, fault)

	// The worker stops on its own after poisoning.
	assert.ErrorIs(t, worker.Awaiter().Err(), fault)
}

func TestCommitMailboxLastWriteWins(t *testing.T) {
	client := &scriptedClient{commits: make(chan map[TopicPartition]int64, 2)}
	handover := NewHandover()
	worker := NewPollWorker(client, handover, time.Millisecond, nil)

	var callbackACount, callbackBCount int32
	callbackB := make(chan error, 1)

	offsetsA := map[TopicPartition]int64{{Topic: "s", Partition: 0}: 10}
	offsetsB := map[TopicPartition]int64{{Topic: "s", Partition: 0}: 20}

	worker.SetOffsetsToCommit(offsetsA, func(err error) {
		atomic.AddInt32(&callbackACount, 1)
	})
	worker.SetOffsetsToCommit(offsetsB, func(err error) {
		atomic.AddInt32(&callbackBCount, 1)
		callbackB <- err
	})

	// Keep the handover drained so the worker can loop freely.
	go func() {
		for {
			if _, err := handover.PollNext(); err != nil {
				return
			}
		}
	}()

	worker.Start()

	assert.NoError(t, <-callbackB)
	assert.Equal(t, offsetsB, <-client.commits)

	worker.Shutdown()
	assert.NoError(t, worker.Awaiter().Err())

	// Exactly one commit was executed, with the newest offsets;
	// the superseded request's callback never fired.
	assert.Empty(t, client.commits)
	assert.Equal(t, int32(0), atomic.LoadInt32(&callbackACount))
	assert.Equal(t, int32(1), atomic.LoadInt32(&callbackBCount))
}

func TestCommitFailureIsReportedThroughCallbackOnly(t *testing.T) {
	fault := errors.New("commit refused")
	client := &scriptedClient{
		commits:   make(chan map[TopicPartition]int64, 1),
		commitErr: fault,
	}
	handover := NewHandover()
	worker := NewPollWorker(client, handover, time.Millisecond, nil)

	callback := make(chan error, 1)
	worker.SetOffsetsToCommit(map[TopicPartition]int64{{Topic: "s", Partition: 0}: 5}, func(err error) {
		callback <- err
	})

	worker.Start()

	assert.ErrorIs(t, <-callback, fault)

	// The commit failure did not poison the handover; batches
	// keep flowing.
	_, err := handover.PollNext()
	assert.NoError(t, err)

	worker.Shutdown()
	assert.NoError(t, worker.Awaiter().Err())
}

func TestShutdownBeforeStart(t *testing.T) {
	client := &scriptedClient{}
	handover := NewHandover()
	worker := NewPollWorker(client, handover, time.Millisecond, nil)

	worker.Shutdown()
	worker.Shutdown()
	assert.NoError(t, worker.Awaiter().Err())

	// Start after shutdown is a no-op.
	worker.Start()
	_, err := handover.PollNext()
	assert.ErrorIs(t, err, ErrHandoverClosed)
}
