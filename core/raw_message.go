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

// RawMessage is the general purpose record format used when no
// application specific deserializer is plugged in, e.g. by the
// CLI when delivering records to a handler process.
type RawMessage struct {
	Key       string `json:"key"`
	Body      string `json:"body"`
	Stream    string `json:"stream"`
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
}

// RawDeserializer produces RawMessages verbatim and never
// signals end of stream.
type RawDeserializer struct{}

func (d *RawDeserializer) Deserialize(key, value []byte, stream string, partition int32, offset int64) (*RawMessage, error) {
	return &RawMessage{
		Key:       string(key),
		Body:      string(value),
		Stream:    stream,
		Partition: partition,
		Offset:    offset,
	}, nil
}

func (d *RawDeserializer) IsEndOfStream(value *RawMessage) bool {
	return false
}
