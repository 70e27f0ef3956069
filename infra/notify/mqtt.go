package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/itzzomkar/navyatra-engine/core/events"
	"github.com/itzzomkar/navyatra-engine/core/model"
	"github.com/itzzomkar/navyatra-engine/infra/feeds"
	"github.com/itzzomkar/navyatra-engine/infra/logger"
)

// Config defines where job events and accepted changes are published.
type Config struct {
	EventTopic  string `json:"event_topic"`
	ChangeTopic string `json:"change_topic"`
	QoS         byte   `json:"qos"`
	Retries     int    `json:"retries"`
	BackoffMS   int    `json:"backoff_ms"`
}

// SetDefaults fills missing fields with usable values.
func (c *Config) SetDefaults() {
	if c.EventTopic == "" {
		c.EventTopic = "optimization/events"
	}
	if c.ChangeTopic == "" {
		c.ChangeTopic = "optimization/changes"
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

type publisher interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

var newPublisher = func(opts *paho.ClientOptions) publisher {
	return paho.NewClient(opts)
}

// Bridge publishes job lifecycle events and accepted schedule changes to
// the MQTT broker. It serves both as the notifier's event sink and as the
// applier's downstream schedule store.
type Bridge struct {
	cfg Config
	cli publisher
	log logger.Logger
}

// NewBridge connects a dedicated MQTT client for outbound publishing.
// The connection parameters are shared with the feed hub configuration.
func NewBridge(feedCfg feeds.Config, cfg Config) (*Bridge, error) {
	cfg.SetDefaults()
	opts, err := feeds.NewClientOptions(feedCfg)
	if err != nil {
		return nil, err
	}
	id := feedCfg.ClientID
	if id != "" {
		id += "-notify"
	} else {
		id = "notify-" + uuid.NewString()
	}
	opts.SetClientID(id)
	cli := newPublisher(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Bridge{cfg: cfg, cli: cli, log: logger.New("notify")}, nil
}

// Publish sends the job event to the event topic. Payload fields mirror
// the bus event so external consumers need no internal types.
func (b *Bridge) Publish(ev events.JobEvent) error {
	msg := struct {
		JobID     string                    `json:"job_id"`
		Phase     string                    `json:"phase"`
		Strategy  string                    `json:"strategy,omitempty"`
		Progress  float64                   `json:"progress,omitempty"`
		Reason    string                    `json:"reason,omitempty"`
		Result    *model.OptimizationResult `json:"result,omitempty"`
		Timestamp int64                     `json:"ts"`
	}{
		JobID:     ev.JobID,
		Phase:     string(ev.Phase),
		Strategy:  ev.Strategy,
		Progress:  ev.Progress,
		Reason:    ev.Reason,
		Result:    ev.Result,
		Timestamp: ev.OccurredAt.UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.publish(b.cfg.EventTopic, payload)
}

// ApplyChanges publishes the accepted changes of a completed job so the
// scheduling system can enact them.
func (b *Bridge) ApplyChanges(ctx context.Context, jobID string, changes []model.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := struct {
		JobID     string         `json:"job_id"`
		Changes   []model.Change `json:"changes"`
		Timestamp int64          `json:"ts"`
	}{
		JobID:     jobID,
		Changes:   changes,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.publish(b.cfg.ChangeTopic, payload)
}

func (b *Bridge) publish(topic string, payload []byte) error {
	backoff := time.Duration(b.cfg.BackoffMS) * time.Millisecond
	var publishErr error
	for attempt := 0; attempt <= b.cfg.Retries; attempt++ {
		token := b.cli.Publish(topic, b.cfg.QoS, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		b.log.Errorf("publish %s attempt %d failed: %v", topic, attempt+1, publishErr)
		time.Sleep(backoff * time.Duration(1<<attempt))
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (b *Bridge) Disconnect() {
	if b.cli != nil && b.cli.IsConnected() {
		b.cli.Disconnect(250)
	}
}
