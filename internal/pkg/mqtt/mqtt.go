package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
)

const (
	discoveryPrefix = "homeassistant/sensor"
	topicPrefix     = "foxess"

	payloadOnline  = "online"
	payloadOffline = "offline"
)

var ErrConnect = errors.New("unable to connect in time")

// Client is the part of the paho client the sink uses.
type Client interface {
	Connect() paho_mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho_mqtt.Token
	Disconnect(quiesce uint)
}

type service struct {
	client   Client
	bridgeID string
	timeout  time.Duration
}

func New(client Client, clientID string) *service {
	return &service{
		client:   client,
		bridgeID: nodeID(clientID),
		timeout:  5 * time.Second,
	}
}

// ClientOptions builds broker options with a retained last will that marks the bridge offline.
func ClientOptions(cfg *config.MqttConfig) *paho_mqtt.ClientOptions {
	status := bridgeTopic(nodeID(cfg.ClientID))
	return paho_mqtt.NewClientOptions().
		AddBroker(cfg.Host).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetWill(status, payloadOffline, 1, true).
		SetOnConnectHandler(func(c paho_mqtt.Client) {
			c.Publish(status, 1, true, payloadOnline)
			zap.L().Info("connected to mqtt broker", zap.String("host", cfg.Host))
		}).
		SetConnectionLostHandler(func(_ paho_mqtt.Client, err error) {
			zap.L().Warn("mqtt connection lost", zap.Error(err))
		})
}

func (s *service) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.timeout) {
		return ErrConnect
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Close marks the bridge offline and disconnects.
func (s *service) Close() error {
	token := s.client.Publish(bridgeTopic(s.bridgeID), 1, true, payloadOffline)
	token.WaitTimeout(s.timeout)
	s.client.Disconnect(250)
	return token.Error()
}

func nodeID(id string) string {
	return slug.Make(id)
}

func bridgeTopic(bridgeID string) string {
	return fmt.Sprintf("%s/%s/status", topicPrefix, bridgeID)
}

func availabilityTopic(deviceID string) string {
	return fmt.Sprintf("%s/%s/availability", topicPrefix, nodeID(deviceID))
}

func sensorTopic(deviceID, sensorSlug string) string {
	return fmt.Sprintf("%s/%s/%s", discoveryPrefix, nodeID(deviceID), sensorSlug)
}
