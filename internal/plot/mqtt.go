// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package plot

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_mouse/internal/log"
)

// DefaultPublishTimeout bounds how long a publish may hold the server loop.
const DefaultPublishTimeout = 100 * time.Millisecond

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Subscriber is the part of mqtt.Client the viewers need.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Connect opens an MQTT client the way every binary here does.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, token.Error())
	}
	log.Info("mqtt: connected", "broker", broker, "client_id", clientID)
	return client, nil
}

// MQTTSink publishes samples as JSON to one topic at QoS 0.
type MQTTSink struct {
	client  Publisher
	topic   string
	timeout time.Duration
}

func NewMQTTSink(client Publisher, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, timeout: DefaultPublishTimeout}
}

func (s *MQTTSink) Publish(smp Sample) error {
	payload, err := json.Marshal(smp)
	if err != nil {
		return fmt.Errorf("plot: marshal sample: %w", err)
	}
	token := s.client.Publish(s.topic, 0, false, payload)
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("plot: publish to %s timed out", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("plot: publish to %s: %w", s.topic, err)
	}
	return nil
}

// Subscribe decodes samples from topic and hands them to fn. Undecodable
// payloads are logged and dropped.
func Subscribe(client Subscriber, topic string, fn func(Sample)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Warn("plot: sample unmarshal error", "topic", msg.Topic(), "err", err)
			return
		}
		fn(s)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("plot: subscribe %s: %w", topic, err)
	}
	log.Info("plot: subscribed", "topic", topic)
	return nil
}
