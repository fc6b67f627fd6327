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

package kafka

import (
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/stretchr/testify/assert"

	"disfetch/core"
)

func TestAppendConsumerMessageGroupsByPartition(t *testing.T) {
	records := map[core.TopicPartition][]*core.Record{}
	ts := time.UnixMilli(1500)

	appendConsumerMessage(records, &sarama.ConsumerMessage{Topic: "s", Partition: 0, Offset: 1, Key: []byte("k1"), Value: []byte("v1"), Timestamp: ts})
	appendConsumerMessage(records, &sarama.ConsumerMessage{Topic: "s", Partition: 1, Offset: 7, Value: []byte("v2"), Timestamp: ts})
	appendConsumerMessage(records, &sarama.ConsumerMessage{Topic: "s", Partition: 0, Offset: 2, Value: []byte("v3"), Timestamp: ts})

	h0 := core.TopicPartition{Topic: "s", Partition: 0}
	h1 := core.TopicPartition{Topic: "s", Partition: 1}

	assert.Len(t, records[h0], 2)
	assert.Len(t, records[h1], 1)
	assert.Equal(t, int64(1), records[h0][0].Offset)
	assert.Equal(t, int64(2), records[h0][1].Offset)
	assert.Equal(t, []byte("v1"), records[h0][0].Value)
	assert.Equal(t, int64(1500), records[h0][0].Timestamp)
}

func TestAppendConsumerMessageWithoutTimestamp(t *testing.T) {
	records := map[core.TopicPartition][]*core.Record{}

	appendConsumerMessage(records, &sarama.ConsumerMessage{Topic: "s", Partition: 0, Offset: 1})

	h := core.TopicPartition{Topic: "s", Partition: 0}
	assert.Equal(t, core.NoTimestamp, records[h][0].Timestamp)
}

func TestCheckCommitResponse(t *testing.T) {
	offsets := map[core.TopicPartition]int64{
		{Topic: "s", Partition: 0}: 10,
		{Topic: "s", Partition: 1}: 20,
	}

	ok := &sarama.OffsetCommitResponse{
		Errors: map[string]map[int32]sarama.KError{
			"s": {0: sarama.ErrNoError, 1: sarama.ErrNoError},
		},
	}
	assert.NoError(t, checkCommitResponse(ok, offsets))

	refused := &sarama.OffsetCommitResponse{
		Errors: map[string]map[int32]sarama.KError{
			"s": {0: sarama.ErrNoError, 1: sarama.ErrRebalanceInProgress},
		},
	}
	assert.Error(t, checkCommitResponse(refused, offsets))

	incomplete := &sarama.OffsetCommitResponse{
		Errors: map[string]map[int32]sarama.KError{
			"s": {0: sarama.ErrNoError},
		},
	}
	assert.Error(t, checkCommitResponse(incomplete, offsets))
}

func TestResumePosition(t *testing.T) {
	resumeAt, lastProcessed := resumePosition(42, sarama.OffsetOldest)
	assert.Equal(t, int64(42), resumeAt)
	assert.Equal(t, int64(41), lastProcessed)

	// A committed zero means nothing was processed yet.
	resumeAt, lastProcessed = resumePosition(0, sarama.OffsetOldest)
	assert.Equal(t, int64(0), resumeAt)
	assert.Equal(t, core.OffsetNotSet, lastProcessed)

	// No committed offset falls back to the configured start.
	resumeAt, lastProcessed = resumePosition(-1, sarama.OffsetNewest)
	assert.Equal(t, sarama.OffsetNewest, resumeAt)
	assert.Equal(t, core.OffsetNotSet, lastProcessed)
}
