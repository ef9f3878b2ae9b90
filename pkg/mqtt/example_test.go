package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
	"github.com/autopeer-io/canbridge/pkg/mqtt"
)

// ExampleClient shows a consumer subscribing to the MMI frame topic and
// queueing a frame for transmission through the gateway.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "example-agent",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}
	defer client.Disconnect(ctx)

	// Runs on the reader goroutine; keep it short.
	handler := func(ctx context.Context, topic string, payload []byte) {
		f, err := can.Decode(payload)
		if err != nil {
			log.Warn("Dropping malformed frame", "topic", topic, "error", err)
			return
		}
		fmt.Println("frame", f)
	}

	topic := "canbridge/v1/frames/" + can.Topic(0x461)
	if err := client.Subscribe(ctx, topic, 0, handler); err != nil {
		log.Error(err, "Failed to subscribe", "topic", topic)
	}

	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}

	req, _ := can.EncodeSendRequest(0x602, []byte{0x09, 0x12, 0x30, 0, 0, 0, 0, 0})
	if err := client.Publish(ctx, "canbridge/v1/tx", 0, false, req); err != nil {
		log.Error(err, "Failed to queue frame")
	}
}
