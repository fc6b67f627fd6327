package cmd

import (
	"time"

	"disfetch/core"
)

func GetConfig() *core.Config {
	return &core.Config{
		PollTimeout:         time.Millisecond * time.Duration(pollTimeoutMillis),
		CommitInterval:      time.Second * time.Duration(commitIntervalSeconds),
		RetryCount:          retryCount,
		RetryDelay:          time.Second * time.Duration(retryDelaySeconds),
		HandlerURL:          handlerURL,
		HandlerCommand:      handlerCommand,
		HandlerArgs:         handlerArgv,
		StartupDelaySeconds: startupDelaySeconds,
		MetricsPort:         metricsPort,
		EnableVerboseLog:    enableVerboseLog,
	}
}
