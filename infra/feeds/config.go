package feeds

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Topics names the broker topics each feed listens on. Wildcard segments
// identify the vehicle or station the message belongs to.
type Topics struct {
	VehicleState      string `json:"vehicle_state"`
	StationFlow       string `json:"station_flow"`
	Weather           string `json:"weather"`
	EnergyPrice       string `json:"energy_price"`
	Maintenance       string `json:"maintenance"`
	DiscoveryRequest  string `json:"discovery_request"`
	DiscoveryResponse string `json:"discovery_response"`
}

// DefaultTopics returns the topic layout used when none is configured.
func DefaultTopics() Topics {
	return Topics{
		VehicleState:      "fleet/vehicle/+/state",
		StationFlow:       "network/station/+/flow",
		Weather:           "network/weather",
		EnergyPrice:       "network/energy/price",
		Maintenance:       "network/maintenance",
		DiscoveryRequest:  "fleet/discovery/request",
		DiscoveryResponse: "fleet/discovery/response/+",
	}
}

// Config defines the connection parameters for the feed hub.
type Config struct {
	Broker        string          `json:"broker"`
	ClientID      string          `json:"client_id"`
	Username      string          `json:"username"`
	Password      string          `json:"password"`
	UseTLS        bool            `json:"use_tls"`
	ClientCert    string          `json:"client_cert"`
	ClientKey     string          `json:"client_key"`
	CABundle      string          `json:"ca_bundle"`
	QoS           map[string]byte `json:"qos"`
	Topics        Topics          `json:"topics"`
	MaxAgeSeconds int             `json:"max_age_seconds"`
	TLSConfig     *tls.Config     `json:"-"`
}

// SetDefaults fills missing fields with usable values.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "state-feeds"
	}
	if c.MaxAgeSeconds <= 0 {
		c.MaxAgeSeconds = 120
	}
	empty := Topics{}
	if c.Topics == empty {
		c.Topics = DefaultTopics()
	}
}

// NewClientOptions builds paho client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
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
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (c Config) qosFor(kind string) byte {
	if q, ok := c.QoS[kind]; ok {
		return q
	}
	return 0
}
