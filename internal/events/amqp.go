package events

import (
	"context"
	"log"

	"fursa/pkg/rabbitmq"
)

// AMQPSink publishes events to the broker using the event name as routing
// key. Failures are logged and swallowed; settlement never waits on delivery.
type AMQPSink struct {
	publisher *rabbitmq.Publisher
}

func NewAMQPSink(publisher *rabbitmq.Publisher) *AMQPSink {
	return &AMQPSink{publisher: publisher}
}

func (s *AMQPSink) Publish(ctx context.Context, ev Event) {
	if err := s.publisher.Publish(ctx, ev.Name, ev); err != nil {
		log.Printf("[events] amqp publish %s: %v", ev.Name, err)
	}
}
