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
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

// SinkProcess manages the handler process that receives the
// HTTP collector's records. The handler's port is exported
// through the DISFETCH_HANDLER_PORT environment variable.
type SinkProcess struct {
	Command      string
	Argv         []string
	StartupDelay time.Duration
	HandlerURL   string
	Awaiter      *Awaiter
	notifier     *AwaitNotifier
	logFields    log.Fields
}

func (h *SinkProcess) Start(ctx context.Context) {
	go func() {
		url, err := url.Parse(h.HandlerURL)
		if err != nil {
			h.notifier.Notify(err)
			return
		}
		cmd := exec.CommandContext(ctx, h.Command, h.Argv...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = os.Environ()
		cmd.Env = append(cmd.Env, fmt.Sprintf("DISFETCH_HANDLER_PORT=%v", url.Port()))
		err = cmd.Run()
		if err != nil {
			log.WithFields(h.logFields).WithField("err", err).Info("handler process exited with error")
		}
		h.notifier.Notify(err)
	}()

	if h.StartupDelay != 0 {
		log.WithFields(h.logFields).Infof("waiting for handler to start (delay is %v)", h.StartupDelay)
		time.Sleep(h.StartupDelay)
		log.WithFields(h.logFields).Info("resuming now")
		return
	}

	// Probe the readiness endpoint for 5 times
	// TODO: make this configurable
	log.WithFields(h.logFields).Info("startup delay is disabled. probing readiness endpoint.")
	for i := 0; i < 5; i++ {
		if i != 0 {
			time.Sleep(time.Second * time.Duration(i))
		}
		response, e := http.Get(h.HandlerURL)
		if e != nil {
			log.WithFields(h.logFields).WithField("error", e).Infof("probing attempt %d failed", i)
			continue
		}
		defer response.Body.Close()
		if response.StatusCode == 200 {
			log.WithFields(h.logFields).Info("handler is ready")
			return
		}
		if response.StatusCode == 404 || response.StatusCode == 501 {
			log.WithFields(h.logFields).WithField("status code", response.StatusCode).Info("probing endpoint is not available")
			return
		}
	}
	log.WithFields(h.logFields).Warn("handler readiness is inconclusive")
}

func NewSinkProcess(command string, argv []string, handlerURL string, startupDelaySeconds int) *SinkProcess {
	awaiter, notifier := NewAwaiter()
	return &SinkProcess{
		Command:      command,
		Argv:         argv,
		HandlerURL:   handlerURL,
		StartupDelay: time.Second * time.Duration(startupDelaySeconds),
		Awaiter:      awaiter,
		notifier:     notifier,
		logFields:    log.Fields{"module": "sink_process"},
	}
}
