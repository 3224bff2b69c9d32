// Package publish sends gesture changes to an MQTT broker.
package publish

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
)

const (
	queueSize      = 16
	publishTimeout = 2 * time.Second
)

// NewClientFunc builds the paho client. Tests replace it.
var NewClientFunc = mqtt.NewClient

// Event is the payload published when the recognized gesture changes.
type Event struct {
	Label     string    `json:"label"`
	FPS       float64   `json:"fps"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes an Event every time the recognized label changes.
type Publisher struct {
	cfg    config.MQTTConfig
	client mqtt.Client
	send   func(topic string, payload []byte) error

	mu      sync.Mutex
	last    string
	started bool

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup
}

// New creates a Publisher. It returns nil when MQTT is disabled.
func New(cfg config.MQTTConfig) *Publisher {
	if !cfg.Enabled {
		log.Info("MQTT publishing is disabled in the configuration.")
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Errorf("MQTT connection lost: %v. Attempting to reconnect...", err)
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Infof("Connected to MQTT broker: %s", brokerURL(cfg))
	})
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)

	p := newPublisher(cfg, nil)
	p.client = NewClientFunc(opts)
	p.send = p.publishPaho
	return p
}

func newPublisher(cfg config.MQTTConfig, send func(string, []byte) error) *Publisher {
	return &Publisher{
		cfg:   cfg,
		send:  send,
		queue: make(chan Event, queueSize),
		done:  make(chan struct{}),
	}
}

func brokerURL(cfg config.MQTTConfig) string {
	return fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)
}

// Start connects to the broker and starts the publishing worker.
func (p *Publisher) Start() error {
	if p.client != nil {
		log.Infof("Attempting to connect to MQTT broker: %s", brokerURL(p.cfg))
		if token := p.client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("connect to MQTT broker %s: %w", brokerURL(p.cfg), token.Error())
		}
	}

	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run()
	return nil
}

// Stop stops the worker and disconnects. Queued events are discarded.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	if p.client != nil && p.client.IsConnected() {
		log.Info("Disconnecting MQTT client...")
		p.client.Disconnect(250)
	}
}

// Observe is a loop observer. It queues an Event when r's label differs from
// the previous frame's label, dropping it if the worker is behind.
func (p *Publisher) Observe(r app.Result) {
	if !p.changed(r.Label) {
		return
	}

	ev := Event{Label: r.Label, FPS: r.FPS, Timestamp: r.Timestamp}
	select {
	case p.queue <- ev:
	default:
		log.Debugf("MQTT queue full, dropping %q", r.Label)
	}
}

func (p *Publisher) changed(label string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if label == p.last {
		return false
	}
	p.last = label
	return true
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case ev := <-p.queue:
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Debugf("encode MQTT event: %v", err)
				continue
			}
			if err := p.send(p.cfg.Topic, payload); err != nil {
				log.Warnf("Failed to publish to %s: %v", p.cfg.Topic, err)
			}
		}
	}
}

func (p *Publisher) publishPaho(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timed out after %s", publishTimeout)
	}
	return token.Error()
}
