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

	"github.com/pkg/errors"
)

// ErrHandoverClosed signals a graceful shutdown in progress.
// It is not a failure and callers must not log it as one.
var ErrHandoverClosed = errors.New("handover closed")

// Handover is the single slot rendezvous between the PollWorker
// goroutine and the emission goroutine. The slot holds at most
// one pending batch or one terminal error, never both. The
// single slot is what bounds the pipeline: the worker can never
// outrun the emission loop by more than one batch.
//
// A terminal error poisons the handover. Every PollNext call
// from then on returns that same error without blocking, so a
// late consumer still observes the fault. Close is the graceful
// counterpart: it drops a pending batch and fails producers and
// consumers with ErrHandoverClosed, but a poison error stored
// before the close is preserved and still replayed.
type Handover struct {
	mutex  sync.Mutex
	wakeup *sync.Cond
	next   *Batch
	err    error
	closed bool
}

func NewHandover() *Handover {
	h := &Handover{}
	h.wakeup = sync.NewCond(&h.mutex)
	return h
}

// Produce hands the next batch to the consumer. It blocks while
// the slot is occupied and fails with ErrHandoverClosed once the
// handover is closed or poisoned.
func (h *Handover) Produce(batch *Batch) error {
	if batch == nil {
		return errors.New("handover: nil batch")
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for h.next != nil && !h.closed && h.err == nil {
		h.wakeup.Wait()
	}

	if h.closed || h.err != nil {
		return errors.WithStack(ErrHandoverClosed)
	}

	h.next = batch
	h.wakeup.Broadcast()
	return nil
}

// ReportError stores a terminal error with the same blocking
// discipline as Produce: a batch already in the slot is always
// consumed before the error becomes visible. At most one error
// is ever stored.
func (h *Handover) ReportError(err error) error {
	if err == nil {
		return errors.New("handover: nil error reported")
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for h.next != nil && !h.closed && h.err == nil {
		h.wakeup.Wait()
	}

	if h.closed || h.err != nil {
		return errors.WithStack(ErrHandoverClosed)
	}

	h.err = err
	h.wakeup.Broadcast()
	return nil
}

// PollNext blocks until a batch or a terminal condition is
// available. A returned batch empties the slot and wakes a
// blocked producer. A poison error is returned verbatim, on
// every call, forever.
func (h *Handover) PollNext() (*Batch, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for h.next == nil && h.err == nil && !h.closed {
		h.wakeup.Wait()
	}

	// Poison outranks close for observers so that a fault
	// reported just before shutdown is never masked.
	if h.err != nil {
		return nil, h.err
	}

	if h.closed {
		return nil, errors.WithStack(ErrHandoverClosed)
	}

	batch := h.next
	h.next = nil
	h.wakeup.Broadcast()
	return batch, nil
}

// Close wakes every blocked producer and consumer and fails all
// subsequent operations with ErrHandoverClosed. A pending batch
// is dropped. Close is idempotent and does not clear a poison
// error.
func (h *Handover) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return
	}

	h.closed = true
	h.next = nil
	h.wakeup.Broadcast()
}
