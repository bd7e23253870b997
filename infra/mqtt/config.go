package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config holds the broker connection and the dispatch topic layout.
type Config struct {
	Enabled           bool            `json:"enabled"`
	Broker            string          `json:"broker"`
	ClientID          string          `json:"client_id"`
	Username          string          `json:"username"`
	Password          string          `json:"password"`
	AckTopic          string          `json:"ack_topic"`
	NoticeTopicPrefix string          `json:"notice_topic_prefix"`
	StatusTopicPrefix string          `json:"status_topic_prefix"`
	AckTimeoutSeconds int             `json:"ack_timeout_seconds"`
	UseTLS            bool            `json:"use_tls"`
	ClientCert        string          `json:"client_cert"`
	ClientKey         string          `json:"client_key"`
	CABundle          string          `json:"ca_bundle"`
	AuthMethod        string          `json:"auth_method"`
	QoS               map[string]byte `json:"qos"`
	LWTTopic          string          `json:"lwt_topic"`
	LWTPayload        string          `json:"lwt_payload"`
	LWTQoS            byte            `json:"lwt_qos"`
	LWTRetain         bool            `json:"lwt_retain"`
	MaxRetries        int             `json:"max_retries"`
	BackoffMS         int             `json:"backoff_ms"`
	TLSConfig         *tls.Config     `json:"-"`
}

const (
	defaultAckTimeout = 10 * time.Second
	defaultRetries    = 3
	defaultBackoff    = 100 * time.Millisecond
)

func (c *Config) SetDefaults() {
	if c.AckTopic == "" {
		c.AckTopic = "triage/resource/+/ack"
	}
	if c.NoticeTopicPrefix == "" {
		c.NoticeTopicPrefix = "triage/resource"
	}
	if c.StatusTopicPrefix == "" {
		c.StatusTopicPrefix = "triage/status"
	}
	if c.AckTimeoutSeconds <= 0 {
		c.AckTimeoutSeconds = int(defaultAckTimeout / time.Second)
	}
}

// Validate only checks an enabled configuration.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	for kind, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt: qos %d for %s", q, kind)
		}
	}
	return nil
}

func (c Config) AckTimeout() time.Duration {
	if c.AckTimeoutSeconds <= 0 {
		return defaultAckTimeout
	}
	return time.Duration(c.AckTimeoutSeconds) * time.Second
}

// qos returns the level configured for kind ("notice", "ack", "status"),
// defaulting to 0.
func (c Config) qos(kind string) byte {
	return c.QoS[kind]
}

func (c Config) retryPolicy() (int, time.Duration) {
	retries, backoff := c.MaxRetries, time.Duration(c.BackoffMS)*time.Millisecond
	if retries <= 0 {
		retries = defaultRetries
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return retries, backoff
}

// NewClientOptions translates cfg into paho options. Units in the
// simulator share it with the server.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)
	switch cfg.AuthMethod {
	case "", "username_password", "both":
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig builds a mutual TLS config from the certificate paths, unless
// TLSConfig is already set.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	pem, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca bundle %s holds no certificates", c.CABundle)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      roots,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
