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

import "math"

// Watermark is a progress marker in event time. Downstream
// processing uses it to bound out-of-orderness.
type Watermark struct {
	Timestamp int64
}

// WatermarkState is the per-partition event time sub-state.
// It is owned and mutated by the emission goroutine only,
// through the fetcher's pass-through calls into the assigner.
type WatermarkState struct {
	// MaxTimestamp is the highest event timestamp seen in
	// this partition so far.
	MaxTimestamp int64
	// CurrentWatermark is the partition's own watermark.
	// It stays at math.MinInt64 until the assigner produces
	// one, which holds the global watermark back until every
	// partition has reported.
	CurrentWatermark int64
}

func NewWatermarkState() WatermarkState {
	return WatermarkState{
		MaxTimestamp:     math.MinInt64,
		CurrentWatermark: math.MinInt64,
	}
}

// TimestampAssigner is the event time policy consulted once per
// emitted record with the partition's watermark sub-state. It
// returns the timestamp to attach to the value and, when the
// partition watermark advanced, the new partition watermark.
// A nil assigner means pass-through source timestamps and no
// watermarks.
type TimestampAssigner[T any] interface {
	AssignTimestamp(value T, sourceTimestamp int64, state *WatermarkState) (timestamp int64, watermark Watermark, ok bool)
}

// BoundedOutOfOrderness assigns source timestamps and tracks a
// watermark that trails the maximum seen timestamp by a fixed
// bound, in milliseconds.
type BoundedOutOfOrderness[T any] struct {
	MaxOutOfOrderness int64
}

func (a *BoundedOutOfOrderness[T]) AssignTimestamp(value T, sourceTimestamp int64, state *WatermarkState) (int64, Watermark, bool) {
	if sourceTimestamp == NoTimestamp {
		return sourceTimestamp, Watermark{}, false
	}
	if sourceTimestamp > state.MaxTimestamp {
		state.MaxTimestamp = sourceTimestamp
	}
	candidate := state.MaxTimestamp - a.MaxOutOfOrderness
	if candidate > state.CurrentWatermark {
		state.CurrentWatermark = candidate
		return sourceTimestamp, Watermark{Timestamp: candidate}, true
	}
	return sourceTimestamp, Watermark{}, false
}

// AscendingTimestamps assumes per-partition timestamps never
// regress and keeps the watermark one behind the latest one.
type AscendingTimestamps[T any] struct{}

func (a *AscendingTimestamps[T]) AssignTimestamp(value T, sourceTimestamp int64, state *WatermarkState) (int64, Watermark, bool) {
	if sourceTimestamp == NoTimestamp {
		return sourceTimestamp, Watermark{}, false
	}
	if sourceTimestamp > state.MaxTimestamp {
		state.MaxTimestamp = sourceTimestamp
	}
	candidate := state.MaxTimestamp - 1
	if candidate > state.CurrentWatermark {
		state.CurrentWatermark = candidate
		return sourceTimestamp, Watermark{Timestamp: candidate}, true
	}
	return sourceTimestamp, Watermark{}, false
}
