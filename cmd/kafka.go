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

package cmd

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"disfetch/core"
	"disfetch/kafka"
	"disfetch/metrics"
)

var stream, group, kafkaVersion string
var brokerAddresses []string
var startFromOldest bool
var bufferSize, maxPollRecords int

// kafkaCmd represents the kafka command
var kafkaCmd = &cobra.Command{
	Use:   "kafka",
	Short: "Start a fetch session against a kafka compatible stream adapter",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		kafkaConfig := kafka.Config{
			Stream:          stream,
			Group:           group,
			BrokerAddresses: brokerAddresses,
			KafkaVersion:    kafkaVersion,
			StartFromOldest: startFromOldest,
			BufferSize:      bufferSize,
			MaxPollRecords:  maxPollRecords,
		}

		config := GetConfig()

		var m *metrics.Metrics
		if config.MetricsPort != 0 {
			m = metrics.New(prometheus.DefaultRegisterer)
			metrics.Expose(config.MetricsPort)
		}

		var client *kafka.Client
		var registry *core.PartitionRegistry
		builder := &kafka.ClientBuilder{}
		retry := core.NewRetryPolicy(config.RetryCount, config.RetryDelay)
		err := retry.Execute(func() error {
			var e error
			client, registry, e = builder.Build(&kafkaConfig)
			return e
		}, "connect to brokers %v", brokerAddresses)
		if err != nil {
			return err
		}

		runner := core.NewDefaultSessionRunner(m)
		return core.RunCLIInstance(func(ctx context.Context) *core.Awaiter {
			return runner.Run(ctx, client, registry, *config)
		}, config)
	},
}

func init() {
	rootCmd.AddCommand(kafkaCmd)

	kafkaCmd.Flags().StringVar(&stream, "stream", "", "stream name")
	kafkaCmd.Flags().StringVar(&group, "group", "", "group name")
	kafkaCmd.Flags().StringArrayVar(&brokerAddresses, "brokers", []string{}, "broker addresses")
	kafkaCmd.Flags().StringVar(&kafkaVersion, "kafka-version", "", "protocol version of the stream adapter")
	kafkaCmd.Flags().BoolVar(&startFromOldest, "start-from-oldest", false, "start consuming from the oldest offset when no committed offset exists")
	kafkaCmd.Flags().IntVar(&bufferSize, "buffer-size", 0, "channel buffer size of the underlying consumer")
	kafkaCmd.Flags().IntVar(&maxPollRecords, "max-poll-records", kafka.DefaultMaxPollRecords, "maximum number of records assembled into one batch")

	kafkaCmd.MarkFlagRequired("stream")
	kafkaCmd.MarkFlagRequired("group")
	kafkaCmd.MarkFlagRequired("brokers")
}
