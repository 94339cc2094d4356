package messaging

import (
	"log"
)

// InboundHandler is called for each decoded inbound message.
type InboundHandler interface {
	HandleExecutionRequest(env *Envelope, req ExecutionRequest)
}

// Consumer subscribes to the requests topic and routes messages to the handler.
type Consumer struct {
	client  *Client
	topic   string
	handler InboundHandler
}

func NewConsumer(client *Client, topic string, handler InboundHandler) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		handler: handler,
	}
}

func (c *Consumer) Start() error {
	return c.client.Subscribe(c.topic, c.handleMessage)
}

func (c *Consumer) handleMessage(_ string, payload []byte) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		log.Printf("consumer: decode error: %v", err)
		return
	}

	switch p := env.Payload.(type) {
	case ExecutionRequest:
		c.handler.HandleExecutionRequest(env, p)
	default:
		log.Printf("consumer: unhandled payload type: %T", p)
	}
}
