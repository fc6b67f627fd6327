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

const DefaultMaxPollRecords int = 500
const DefaultChannelBufferSize int = 256

// Config of the Kafka compatible stream adapter.
type Config struct {
	Stream          string
	Group           string
	BrokerAddresses []string
	KafkaVersion    string
	StartFromOldest bool
	BufferSize      int
	MaxPollRecords  int
}
