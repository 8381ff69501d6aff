package services

// EventPublisher is the capability services use to emit domain events. A nil
// publisher disables publication; failures are logged and never fail the
// request.
type EventPublisher interface {
	Publish(routingKey string, payload map[string]any) error
}
