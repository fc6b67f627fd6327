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
	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"disfetch/core"
)

// ClientBuilder connects a Client and derives the partition
// registry for it: it discovers the stream's partitions, looks
// up the group's committed offsets from the coordinator, and
// starts a partition consumer for each partition at its resume
// position.
type ClientBuilder struct {
}

func (b *ClientBuilder) Build(kafkaConfig *Config) (*Client, *core.PartitionRegistry, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_4_0_0
	if kafkaConfig.KafkaVersion != "" {
		version, err := sarama.ParseKafkaVersion(kafkaConfig.KafkaVersion)
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}
		config.Version = version
	}
	config.Consumer.Return.Errors = true
	if kafkaConfig.BufferSize != 0 {
		config.ChannelBufferSize = kafkaConfig.BufferSize
	}

	client, err := sarama.NewClient(kafkaConfig.BrokerAddresses, config)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	partitions, err := client.Partitions(kafkaConfig.Stream)
	if err != nil {
		client.Close()
		return nil, nil, errors.WithStack(err)
	}

	committed, err := fetchCommittedOffsets(client, kafkaConfig.Group, kafkaConfig.Stream, partitions)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		client.Close()
		return nil, nil, errors.WithStack(err)
	}

	bufferSize := kafkaConfig.BufferSize
	if bufferSize == 0 {
		bufferSize = DefaultChannelBufferSize
	}
	maxPollRecords := kafkaConfig.MaxPollRecords
	if maxPollRecords == 0 {
		maxPollRecords = DefaultMaxPollRecords
	}

	c := &Client{
		client:         client,
		consumer:       consumer,
		group:          kafkaConfig.Group,
		messages:       make(chan *sarama.ConsumerMessage, bufferSize),
		errs:           make(chan *sarama.ConsumerError, 1),
		closing:        make(chan struct{}),
		maxPollRecords: maxPollRecords,
		logFields:      log.Fields{"module": "kafka_client"},
	}

	fallback := sarama.OffsetNewest
	if kafkaConfig.StartFromOldest {
		fallback = sarama.OffsetOldest
	}

	initialOffsets := map[core.StreamPartition]int64{}
	for _, partition := range partitions {
		resumeAt, lastProcessed := resumePosition(committed[partition], fallback)

		pc, err := consumer.ConsumePartition(kafkaConfig.Stream, partition, resumeAt)
		if errors.Is(err, sarama.ErrOffsetOutOfRange) && resumeAt != fallback {
			// The committed position has aged out of the
			// stream's retention window.
			log.WithFields(c.logFields).WithFields(log.Fields{"partition": partition, "offset": resumeAt}).Warn("committed offset out of range, falling back to configured start position")
			lastProcessed = core.OffsetNotSet
			pc, err = consumer.ConsumePartition(kafkaConfig.Stream, partition, fallback)
		}
		if err != nil {
			c.Close()
			return nil, nil, errors.WithStack(err)
		}

		c.consumePartition(pc)
		initialOffsets[core.StreamPartition{Stream: kafkaConfig.Stream, Partition: partition}] = lastProcessed
	}

	registry := core.NewPartitionRegistry(initialOffsets, core.DefaultPartitionHandleFactory)
	log.WithFields(c.logFields).WithFields(log.Fields{"stream": kafkaConfig.Stream, "partitions": len(partitions)}).Info("kafka client connected")
	return c, registry, nil
}

// resumePosition derives the consume start position and the
// registry's initial last-processed offset from a committed
// offset. Committed offsets follow the "next offset to resume
// from" convention.
func resumePosition(committed int64, fallback int64) (resumeAt int64, lastProcessed int64) {
	if committed > 0 {
		return committed, committed - 1
	}
	if committed == 0 {
		return committed, core.OffsetNotSet
	}
	return fallback, core.OffsetNotSet
}

func fetchCommittedOffsets(client sarama.Client, group, stream string, partitions []int32) (map[int32]int64, error) {
	coordinator, err := client.Coordinator(group)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	request := &sarama.OffsetFetchRequest{
		ConsumerGroup: group,
		Version:       1,
	}
	for _, partition := range partitions {
		request.AddPartition(stream, partition)
	}

	response, err := coordinator.FetchOffset(request)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	committed := make(map[int32]int64, len(partitions))
	for _, partition := range partitions {
		block := response.GetBlock(stream, partition)
		if block == nil {
			return nil, errors.Errorf("offset fetch response is missing partition %s/%d", stream, partition)
		}
		if block.Err != sarama.ErrNoError {
			return nil, errors.Wrapf(block.Err, "offset fetch failed for %s/%d", stream, partition)
		}
		committed[partition] = block.Offset
	}
	return committed, nil
}
