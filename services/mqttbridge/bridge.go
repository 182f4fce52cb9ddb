// Package mqttbridge forwards barometric readings from the local bus to an
// external MQTT broker. It supervises a single broker link: connect with
// exponential backoff, forward retained readings as retained MQTT messages,
// and report link state on the local bus.
package mqttbridge

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"barocode-go/bus"
	"barocode-go/services/baro"
	"barocode-go/types"
)

var stateTopic = bus.T("bridge", "state")

// Config for the broker link. All fields except BrokerURL are optional.
type Config struct {
	BrokerURL      string // e.g. "tcp://localhost:1883"
	ClientID       string // default "baro-bridge"
	TopicPrefix    string // remote topic prefix, default "sensors/baro"
	QoS            byte
	ConnectTimeout time.Duration // default 5 s
}

type Service struct {
	conn *bus.Connection
	cfg  Config
}

func New(conn *bus.Connection, cfg Config) *Service {
	if cfg.ClientID == "" {
		cfg.ClientID = "baro-bridge"
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "sensors/baro"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	return &Service{conn: conn, cfg: cfg}
}

// Run connects to the broker, retrying with backoff, then forwards readings
// until ctx is done. It returns ctx.Err() when cancelled while the link is
// still down, nil on a clean stop.
func (s *Service) Run(ctx context.Context) error {
	tempSub := s.conn.Subscribe(baro.TopicValue(types.KindTemperature))
	pressSub := s.conn.Subscribe(baro.TopicValue(types.KindPressure))
	altSub := s.conn.Subscribe(baro.TopicValue(types.KindAltitude))
	sensorSub := s.conn.Subscribe(baro.TopicState())
	defer func() {
		tempSub.Unsubscribe()
		pressSub.Unsubscribe()
		altSub.Unsubscribe()
		sensorSub.Unsubscribe()
	}()

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetConnectTimeout(s.cfg.ConnectTimeout).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		tok := client.Connect()
		tok.Wait()
		err := tok.Error()
		if err == nil {
			break
		}
		delay := backoff()
		s.publishState("degraded", "connect_failed_retrying", err)
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
	}
	defer client.Disconnect(250)
	s.publishState("up", "broker_connected", nil)

	for {
		select {
		case <-ctx.Done():
			s.publishState("idle", "stopped", nil)
			return nil
		case m := <-tempSub.Channel():
			s.forward(client, string(types.KindTemperature), m.Payload)
		case m := <-pressSub.Channel():
			s.forward(client, string(types.KindPressure), m.Payload)
		case m := <-altSub.Channel():
			s.forward(client, string(types.KindAltitude), m.Payload)
		case m := <-sensorSub.Channel():
			s.forward(client, "state", m.Payload)
		}
	}
}

// forward publishes one reading to the broker. Marshal failures and publish
// failures degrade the state topic; readings are never buffered beyond what
// the MQTT client queues itself.
func (s *Service) forward(client mqtt.Client, kind string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		s.publishState("degraded", "marshal_failed", err)
		return
	}
	tok := client.Publish(s.remoteTopic(kind), s.cfg.QoS, true, b)
	if tok.Wait() && tok.Error() != nil {
		s.publishState("degraded", "publish_failed", tok.Error())
	}
}

func (s *Service) remoteTopic(kind string) string {
	return s.cfg.TopicPrefix + "/" + kind
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,  // "up", "degraded", "idle"
		"status": status, // short machine string
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(stateTopic, payload, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
