/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/core"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MQTTConfig says where to publish Steps.
type MQTTConfig struct {
	// Broker is a URL like "tcp://localhost:1883".
	Broker   string `yaml:"broker" json:"broker"`
	ClientId string `yaml:"clientId,omitempty" json:"clientId,omitempty"`

	// Topic is the prefix.  Steps go to Topic/chart/kind.
	Topic string `yaml:"topic" json:"topic"`
	QoS   byte   `yaml:"qos,omitempty" json:"qos,omitempty"`

	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Publisher is the part of an mqtt.Client that MQTTPublisher uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes Steps to an MQTT broker.
//
// Observe only queues.  A separate loop (Run) publishes, so a slow
// broker never stalls a machine.  When the queue is full, Steps are
// dropped.
type MQTTPublisher struct {
	Client  Publisher
	Topic   string
	QoS     byte
	Timeout time.Duration
	Logger  logrus.FieldLogger

	out chan *core.Step
}

// NewMQTTPublisher makes a publisher for an existing client.
func NewMQTTPublisher(c Publisher, topic string, qos byte, logger logrus.FieldLogger) *MQTTPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MQTTPublisher{
		Client:  c,
		Topic:   topic,
		QoS:     qos,
		Timeout: 5 * time.Second,
		Logger:  logger,
		out:     make(chan *core.Step, 1024),
	}
}

// ConnectMQTT makes and connects a paho client.
func ConnectMQTT(cfg *MQTTConfig, logger logrus.FieldLogger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	if cfg.ClientId == "" {
		cfg.ClientId = "nopasaran-" + core.Gensym(8)
	}
	opts.SetClientID(cfg.ClientId)
	opts.SetKeepAlive(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.Username = cfg.Username
	opts.Password = cfg.Password
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrap(token.Error(), cfg.Broker)
	}
	logger.WithField("broker", cfg.Broker).Info("connected to MQTT broker")
	return c, nil
}

func (p *MQTTPublisher) Observe(ctx context.Context, s *core.Step) {
	select {
	case p.out <- s:
	default:
		p.Logger.WithField("machine", s.Machine).Warn("MQTT publisher queue full; dropping step")
	}
}

// TopicFor returns the topic for a Step.
func (p *MQTTPublisher) TopicFor(s *core.Step) string {
	return p.Topic + "/" + s.Chart + "/" + string(s.Kind)
}

// Run publishes queued Steps until the context is done.
func (p *MQTTPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-p.out:
			p.publish(s)
		}
	}
}

// Flush publishes whatever is queued.
func (p *MQTTPublisher) Flush() {
	for {
		select {
		case s := <-p.out:
			p.publish(s)
		default:
			return
		}
	}
}

func (p *MQTTPublisher) publish(s *core.Step) {
	js, err := json.Marshal(s)
	if err != nil {
		p.Logger.WithError(err).Warn("MQTT publisher can't marshal step")
		return
	}
	topic := p.TopicFor(s)
	token := p.Client.Publish(topic, p.QoS, false, js)
	if !token.WaitTimeout(p.Timeout) {
		p.Logger.WithField("topic", topic).Warn("MQTT publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.Logger.WithError(err).WithField("topic", topic).Warn("MQTT publish failed")
	}
}
