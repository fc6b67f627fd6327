package utils

import (
	"sync"
	"time"
)

// TestClock is an injectable clock for components that take a
// `now func() time.Time`.
type TestClock struct {
	mutex sync.Mutex
	now   time.Time
}

func NewTestClock() *TestClock {
	return &TestClock{now: time.Now()}
}

func (c *TestClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *TestClock) Advance(d time.Duration) time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
