// Package mqtt provides the broker connection used by the Q-SYS bridge.
//
// It manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and retain control
//   - Subscriptions that survive reconnects
//   - A Last Will so the Core sees the bridge go offline
//
// Topic layout is owned by the bridge package; this package only moves
// bytes.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{
//	    Topic:   bridge.HealthTopic(),
//	    Payload: health.LWTPayload(),
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(bridge.CommandSubscribeTopic(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
//
// # Security Considerations
//
// Set broker.tls in production; credentials come from config or the
// MQTT_USERNAME and MQTT_PASSWORD environment variables.
package mqtt
