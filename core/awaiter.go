package core

// AwaitNotifier counterpart of an `Awaiter`
type AwaitNotifier struct {
	done chan struct{}
	err  error
}

// Notify records the provided error as the goroutine's exit
// reason and signals the `Awaiter`. It must be called exactly
// once, by the goroutine whose completion is being observed.
func (n *AwaitNotifier) Notify(err error) {
	n.err = err
	close(n.done)
}

// Awaiter is a coordination primitive used to join an
// independently executing goroutine. The PollWorker and the
// session runner both expose one so that shutdown initiators
// can wait for their terminal transition before considering
// teardown complete.
// When goroutine A needs to make its completion observable
// to B, A creates an Awaiter and its AwaitNotifier counterpart
// and hands the Awaiter reference to B. B then uses either the
// `Done()` channel or the `Err()` method to wait for A.
type Awaiter struct {
	notifier *AwaitNotifier
}

// Done channel is closed when the `Awaiter` is signaled. It can
// be used in `select` statements to make the wait non-blocking.
func (a *Awaiter) Done() <-chan struct{} {
	return a.notifier.done
}

// Err blocks until the `Awaiter` is signaled and returns the
// exit reason if there is one.
func (a *Awaiter) Err() error {
	<-a.Done()
	return a.notifier.err
}

// NewAwaiter creates a new `Awaiter` and `AwaitNotifier` pair.
func NewAwaiter() (*Awaiter, *AwaitNotifier) {
	notifier := &AwaitNotifier{
		done: make(chan struct{}),
	}

	return &Awaiter{notifier: notifier}, notifier
}
