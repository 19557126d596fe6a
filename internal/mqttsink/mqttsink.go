// Package mqttsink publishes decoded RAW/IDA/ACARS lines to an MQTT
// broker, replacing the original ZMQ PUB socket per SPEC_FULL.md's
// ambient-stack design decision (spec.md §6 listed ZMQ as an external
// pipe; this module has no ZMQ dependency in the pack, so it is
// re-expressed on the broker transport the teacher already wires for
// fan-out).
//
// Grounded on mqtt_publisher.go: client options, TLS loading, and the
// random-suffix client ID convention are reproduced directly.
package mqttsink

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// TLSConfig mirrors MQTTTLSConfig's fields.
type TLSConfig struct {
	Enabled    bool
	CACert     string
	ClientCert string
	ClientKey  string
}

// Config configures a Sink's broker connection.
type Config struct {
	Broker   string
	Username string
	Password string
	Topic    string
	TLS      TLSConfig
}

// Sink publishes bytes written to it as retained-false MQTT messages
// on a single topic. It implements io.Writer so an output.Stream can
// attach it directly with AddSink.
type Sink struct {
	client mqtt.Client
	topic  string
}

func generateClientID() string {
	return "iridium-sniffer_" + uuid.New().String()
}

func loadTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	tlsCfg := &tls.Config{}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}

// Connect dials the configured broker and returns a ready Sink.
func Connect(cfg Config) (*Sink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(generateClientID())

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	if cfg.TLS.Enabled {
		tlsCfg, err := loadTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("load TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("mqttsink: connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqttsink: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "iridium/decoded"
	}

	return &Sink{client: client, topic: topic}, nil
}

// Write publishes p as a single QoS-0 MQTT message and always reports
// success: a dropped line must never block or fail the decode
// pipeline (spec.md §5's backpressure requirement).
func (s *Sink) Write(p []byte) (int, error) {
	s.client.Publish(s.topic, 0, false, p)
	return len(p), nil
}

// Close disconnects from the broker.
func (s *Sink) Close() {
	s.client.Disconnect(250)
}
