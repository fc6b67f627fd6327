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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// HTTPCollector delivers emitted records to a handler endpoint
// as JSON. A delivery failure never aborts emission; it is
// retried per the policy and then logged.
type HTTPCollector[T any] struct {
	HandlerURL  string
	RetryPolicy *RetryPolicy
	logFields   log.Fields
}

type collectedRecord[T any] struct {
	Value     T     `json:"value"`
	Timestamp int64 `json:"timestamp"`
}

type collectedWatermark struct {
	Watermark int64 `json:"watermark"`
}

func (c *HTTPCollector[T]) Collect(value T, timestamp int64) {
	payload := collectedRecord[T]{Value: value, Timestamp: timestamp}
	err := c.RetryPolicy.Execute(func() error {
		return c.post(payload)
	}, "deliver record to %s", c.HandlerURL)
	if err != nil {
		log.WithFields(c.logFields).WithField("err", err).Warn("record delivery failed")
	}
}

func (c *HTTPCollector[T]) EmitWatermark(watermark Watermark) {
	err := c.post(collectedWatermark{Watermark: watermark.Timestamp})
	if err != nil {
		log.WithFields(c.logFields).WithField("err", err).Warn("watermark delivery failed")
	}
}

func (c *HTTPCollector[T]) post(payload interface{}) error {
	output, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}

	response, err := http.Post(c.HandlerURL, "application/json", bytes.NewReader(output))
	if err != nil {
		return errors.WithStack(err)
	}

	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return errors.WithStack(err)
	}

	if response.StatusCode != 200 {
		return errors.WithStack(errors.New(fmt.Sprintf("error response from handler %d: %s", response.StatusCode, string(body))))
	}
	return nil
}

func NewHTTPCollector[T any](handlerURL string, retryPolicy *RetryPolicy) *HTTPCollector[T] {
	if retryPolicy == nil {
		retryPolicy = NewRetryPolicy(0, 0)
	}
	return &HTTPCollector[T]{
		HandlerURL:  handlerURL,
		RetryPolicy: retryPolicy,
		logFields:   log.Fields{"module": "http_collector"},
	}
}

// LogCollector writes emitted records to the log. It is the
// default sink when no handler endpoint is configured.
type LogCollector[T any] struct {
	logFields log.Fields
}

func (c *LogCollector[T]) Collect(value T, timestamp int64) {
	log.WithFields(c.logFields).WithFields(log.Fields{"value": value, "timestamp": timestamp}).Info("record collected")
}

func (c *LogCollector[T]) EmitWatermark(watermark Watermark) {
	log.WithFields(c.logFields).WithField("watermark", watermark.Timestamp).Info("watermark emitted")
}

func NewLogCollector[T any]() *LogCollector[T] {
	return &LogCollector[T]{
		logFields: log.Fields{"module": "log_collector"},
	}
}
