package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"judge-chat-service/internal/rabbitmq"
)

// PublisherMock stands in for the AMQP publisher so lifecycle tests can
// assert which routing keys the services emit.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// RoutingKeys returns every routing key published so far, in call order.
func (m *PublisherMock) RoutingKeys() []string {
	var keys []string
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			keys = append(keys, call.Arguments.String(1))
		}
	}
	return keys
}

var _ rabbitmq.Publisher = (*PublisherMock)(nil)
