package core

import (
	"context"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
)

// RunCLIInstance runs one fetch session until it exits on its
// own or an interrupt arrives.
func RunCLIInstance(run func(context.Context) *Awaiter, config *Config) error {
	if config.EnableVerboseLog {
		log.SetLevel(log.DebugLevel)
	}

	ctx := context.Background()
	cancelCtx, cancelFunc := context.WithCancel(ctx)

	chanSignal := make(chan os.Signal, 1)
	signal.Notify(chanSignal, os.Interrupt)

	awaiter := run(cancelCtx)

	select {
	case <-awaiter.Done():
	case <-chanSignal:
	}

	cancelFunc()
	return awaiter.Err()
}
