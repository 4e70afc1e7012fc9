package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/asr"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/hermes"
)

// Config holds broker connection settings.
type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	Username string
	Password string
	ClientID string
	SiteIDs  []string // restricts audio frame subscriptions; empty subscribes all sites
}

// Transport connects the ASR service to a Hermes MQTT broker: it subscribes
// to the control and audio topics, dispatches decoded messages to the
// service, and publishes the service's outbound events. It is the outermost
// dispatch boundary; no error or panic escapes a message handler.
type Transport struct {
	client  paho.Client
	logger  *log.Logger
	siteIDs []string
	svc     *asr.Service
}

func New(cfg Config, logger *log.Logger) *Transport {
	if logger == nil {
		logger = log.Default()
	}
	t := &Transport{
		logger:  logger,
		siteIDs: cfg.SiteIDs,
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "rhasspy-asr-kaldi-hermes"
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			t.logger.Warn("mqtt connection lost", "err", err)
		})

	t.client = paho.NewClient(opts)
	return t
}

// Bind attaches the ASR service the transport dispatches into. Must be
// called before Connect.
func (t *Transport) Bind(svc *asr.Service) {
	t.svc = svc
}

func (t *Transport) Connect() error {
	if t.svc == nil {
		return fmt.Errorf("transport not bound to a service")
	}
	token := t.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (t *Transport) Close() {
	t.client.Disconnect(250)
}

func (t *Transport) onConnect(client paho.Client) {
	topics := []string{
		hermes.TopicToggleOn,
		hermes.TopicToggleOff,
		hermes.TopicStartListening,
		hermes.TopicStopListening,
	}
	if len(t.siteIDs) > 0 {
		for _, siteID := range t.siteIDs {
			topics = append(topics, hermes.AudioFrameTopic(siteID))
		}
	} else {
		topics = append(topics, hermes.AudioFrameTopic("+"))
	}

	for _, topic := range topics {
		token := client.Subscribe(topic, 0, t.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			t.logger.Error("subscribe failed", "topic", topic, "err", err)
			continue
		}
		t.logger.Debug("subscribed", "topic", topic)
	}
}

// handleMessage is the top-level dispatch point for every inbound message.
// It must keep the process alive no matter what a payload does.
func (t *Transport) handleMessage(_ paho.Client, msg paho.Message) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("message handler panic", "topic", msg.Topic(), "panic", r)
		}
	}()

	topic := msg.Topic()
	if !hermes.IsAudioFrameTopic(topic) {
		t.logger.Debug("message received", "topic", topic, "bytes", len(msg.Payload()))
	}

	switch topic {
	case hermes.TopicToggleOn:
		var p hermes.ToggleOn
		if t.decode(topic, msg.Payload(), &p) {
			t.svc.ToggleOn(hermes.SiteOrDefault(p.SiteID))
		}
		return
	case hermes.TopicToggleOff:
		var p hermes.ToggleOff
		if t.decode(topic, msg.Payload(), &p) {
			t.svc.ToggleOff(hermes.SiteOrDefault(p.SiteID))
		}
		return
	}

	if !t.svc.Enabled() {
		return
	}

	switch {
	case hermes.IsAudioFrameTopic(topic):
		t.svc.HandleFrame(msg.Payload(), hermes.AudioFrameSiteID(topic))

	case topic == hermes.TopicStartListening:
		var p hermes.StartListening
		if t.decode(topic, msg.Payload(), &p) {
			t.svc.StartListening(p.SessionID, hermes.SiteOrDefault(p.SiteID))
		}

	case topic == hermes.TopicStopListening:
		var p hermes.StopListening
		if t.decode(topic, msg.Payload(), &p) {
			t.svc.StopListening(p.SessionID, hermes.SiteOrDefault(p.SiteID))
		}
	}
}

func (t *Transport) decode(topic string, payload []byte, v any) bool {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		t.logger.Error("bad payload", "topic", topic, "err", err)
		return false
	}
	return true
}

// TextCaptured publishes a transcription result. Implements asr.Publisher.
func (t *Transport) TextCaptured(ev hermes.TextCaptured) {
	t.publish(hermes.TopicTextCaptured, ev)
}

// Error publishes a session-scoped error event. Implements asr.Publisher.
func (t *Transport) Error(ev hermes.Error) {
	t.publish(hermes.TopicError, ev)
}

func (t *Transport) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		t.logger.Error("marshal outbound event", "topic", topic, "err", err)
		return
	}
	t.client.Publish(topic, 0, false, payload)
	t.logger.Debug("published", "topic", topic, "bytes", len(payload))
}
