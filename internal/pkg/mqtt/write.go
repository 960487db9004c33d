package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anicoll/foxess-integration/internal/pkg/model"
)

func (s *service) Write(ctx context.Context, data []map[string]any) error {
	for _, d := range data {
		if err := s.PublishData(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDevice publishes a retained discovery config for every sensor of the device.
func (s *service) RegisterDevice(ctx context.Context, device *model.Device, statuses []model.DeviceStatus) error {
	for _, status := range statuses {
		payload, err := json.Marshal(s.registerMsg(device, status))
		if err != nil {
			return err
		}
		topic := sensorTopic(device.ID, status.Slug) + "/config"
		if err := s.publish(ctx, topic, 1, true, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) SetAvailability(ctx context.Context, deviceID string, online bool) error {
	payload := payloadOffline
	if online {
		payload = payloadOnline
	}
	return s.publish(ctx, availabilityTopic(deviceID), 1, true, payload)
}

func (s *service) PublishData(ctx context.Context, data map[string]any) error {
	topic := sensorTopic(data["identifier"].(string), data["slug"].(string)) + "/state"

	payload := map[string]any{
		"value": data["value"],
	}
	if text, _ := data["text"].(bool); !text {
		payload["unit_of_measurement"] = data["unit_of_measurement"]
	}

	publishData, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.publish(ctx, topic, 0, false, publishData)
}

func (s *service) publish(ctx context.Context, topic string, qos byte, retained bool, payload any) error {
	token := s.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (s *service) registerMsg(device *model.Device, status model.DeviceStatus) model.RegisterMessage {
	msg := model.RegisterMessage{
		Tilda:         sensorTopic(device.ID, status.Slug),
		Name:          status.Name,
		ID:            status.UniqueID,
		ObjectID:      nodeID(device.Name + " " + status.Name),
		StateTopic:    "~/state",
		ValueTemplate: "{{ value_json.value }}",
		Availability: []model.Availability{
			{Topic: bridgeTopic(s.bridgeID)},
			{Topic: availabilityTopic(device.ID)},
		},
		AvailabilityMode: "all",
		DeviceClass:      status.DeviceClass,
		StateClass:       status.StateClass,
		Icon:             status.Icon,
		Device: model.RegisterDevice{
			Name:         device.Name,
			Identifiers:  []string{device.ID},
			Model:        device.Model,
			Manufacturer: device.Manufacturer,
			SerialNumber: device.SerialNumber,
			SWVersion:    device.Version,
		},
	}
	if !status.Text {
		msg.Unit = status.Unit
	}
	return msg
}
