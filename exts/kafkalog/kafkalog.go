// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Kafkalog ships access log lines to a Kafka topic. Target syntax:
// "broker:9092/topic".

package kafkalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/hexinfra/castor/gemini"
)

func init() {
	gemini.RegisterLogger("kafka", func(config *gemini.LogConfig) (gemini.Logger, error) {
		broker, topic, ok := strings.Cut(config.Target, "/")
		if !ok || broker == "" || topic == "" {
			return nil, gemini.NewConfigError("kafka logger target must be broker/topic")
		}
		l := new(kafkaLogger)
		l.writer = &kafka.Writer{
			Addr:     kafka.TCP(broker),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}
		return l, nil
	})
}

// kafkaLogger
type kafkaLogger struct {
	writer *kafka.Writer
}

func (l *kafkaLogger) Log(v ...any)            { l.send(fmt.Sprint(v...)) }
func (l *kafkaLogger) Logln(v ...any)          { l.send(fmt.Sprintln(v...)) }
func (l *kafkaLogger) Logf(f string, v ...any) { l.send(fmt.Sprintf(f, v...)) }

func (l *kafkaLogger) send(line string) {
	l.writer.WriteMessages(context.Background(), kafka.Message{
		Value: []byte(strings.TrimSuffix(line, "\n")),
	})
}

func (l *kafkaLogger) Close() {
	l.writer.Close()
}
