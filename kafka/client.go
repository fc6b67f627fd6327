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
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"disfetch/core"
)

// Client implements core.PollingClient over the stream
// service's Kafka compatible adapter. Per-partition consumers
// are fanned into a single channel that Poll assembles batches
// from; offset commits go synchronously to the group
// coordinator. Per the PollingClient contract only one
// goroutine calls Poll, CommitOffsets and Close.
type Client struct {
	client             sarama.Client
	consumer           sarama.Consumer
	group              string
	partitionConsumers []sarama.PartitionConsumer

	messages chan *sarama.ConsumerMessage
	errs     chan *sarama.ConsumerError
	closing  chan struct{}

	maxPollRecords int
	closeOnce      sync.Once
	logFields      log.Fields
}

// Poll waits up to timeout for the first available record, then
// drains whatever is immediately ready, bounded by
// maxPollRecords. A quiet timeout yields an empty batch.
func (c *Client) Poll(timeout time.Duration) (*core.Batch, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	records := map[core.TopicPartition][]*core.Record{}

	select {
	case err := <-c.errs:
		return nil, errors.WithStack(err)
	case m := <-c.messages:
		appendConsumerMessage(records, m)
	case <-timer.C:
		return core.NewBatch(nil), nil
	}

	for count := 1; count < c.maxPollRecords; count++ {
		select {
		case m := <-c.messages:
			appendConsumerMessage(records, m)
		default:
			return core.NewBatch(records), nil
		}
	}
	return core.NewBatch(records), nil
}

// CommitOffsets acknowledges the given offsets to the group
// coordinator and checks the per-partition results.
func (c *Client) CommitOffsets(offsets map[core.TopicPartition]int64) error {
	coordinator, err := c.client.Coordinator(c.group)
	if err != nil {
		return errors.WithStack(err)
	}

	request := &sarama.OffsetCommitRequest{
		ConsumerGroup: c.group,
		Version:       1,
	}
	for tp, offset := range offsets {
		request.AddBlock(tp.Topic, tp.Partition, offset, 0, "")
	}

	response, err := coordinator.CommitOffset(request)
	if err != nil {
		return errors.WithStack(err)
	}

	return checkCommitResponse(response, offsets)
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		for _, pc := range c.partitionConsumers {
			pc.AsyncClose()
		}
		if e := c.consumer.Close(); e != nil {
			err = errors.WithStack(e)
		}
		if e := c.client.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
		log.WithFields(c.logFields).Info("kafka client closed")
	})
	return err
}

// consumePartition starts the fan-in goroutines for one
// partition consumer. They exit when the partition consumer's
// channels close or the client starts closing.
func (c *Client) consumePartition(pc sarama.PartitionConsumer) {
	c.partitionConsumers = append(c.partitionConsumers, pc)

	go func() {
		for m := range pc.Messages() {
			select {
			case c.messages <- m:
			case <-c.closing:
				return
			}
		}
	}()

	go func() {
		for e := range pc.Errors() {
			select {
			case c.errs <- e:
			case <-c.closing:
				return
			default:
				// A fault is already pending; one is enough to
				// poison the session.
			}
		}
	}()
}

func appendConsumerMessage(records map[core.TopicPartition][]*core.Record, m *sarama.ConsumerMessage) {
	handle := core.TopicPartition{Topic: m.Topic, Partition: m.Partition}
	timestamp := core.NoTimestamp
	if !m.Timestamp.IsZero() {
		timestamp = m.Timestamp.UnixMilli()
	}
	records[handle] = append(records[handle], &core.Record{
		Key:       m.Key,
		Value:     m.Value,
		Offset:    m.Offset,
		Timestamp: timestamp,
	})
}

func checkCommitResponse(response *sarama.OffsetCommitResponse, offsets map[core.TopicPartition]int64) error {
	for tp := range offsets {
		partitions, ok := response.Errors[tp.Topic]
		if !ok {
			return errors.Errorf("commit response is missing topic %s", tp.Topic)
		}
		kerr, ok := partitions[tp.Partition]
		if !ok {
			return errors.Errorf("commit response is missing partition %s/%d", tp.Topic, tp.Partition)
		}
		if kerr != sarama.ErrNoError {
			return errors.Wrapf(kerr, "commit failed for %s/%d", tp.Topic, tp.Partition)
		}
	}
	return nil
}
