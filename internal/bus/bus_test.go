package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	b := New()

	var order []int
	b.Subscribe("topic", func(payload any) { order = append(order, 1) })
	b.Subscribe("topic", func(payload any) { order = append(order, 2) })
	b.Subscribe("topic", func(payload any) { order = append(order, 3) })

	b.Publish("topic", "payload")

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestPublishPassesPayload(t *testing.T) {
	b := New()

	var got any
	b.Subscribe("topic", func(payload any) { got = payload })

	b.Publish("topic", 42)

	assert.Equal(t, 42, got)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	b := New()

	assert.NotPanics(t, func() {
		b.Publish("nobody-home", "payload")
	})
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	b := New()

	var delivered bool
	b.Subscribe("topic", func(payload any) { panic("boom") })
	b.Subscribe("topic", func(payload any) { delivered = true })

	assert.NotPanics(t, func() {
		b.Publish("topic", "payload")
	})
	assert.True(t, delivered)
}

func TestSubscriberAddedAfterPublishSeesNothing(t *testing.T) {
	b := New()

	b.Publish("topic", "early")

	var calls int
	b.Subscribe("topic", func(payload any) { calls++ })

	assert.Zero(t, calls)

	b.Publish("topic", "late")
	assert.Equal(t, 1, calls)
}

func TestTopicsAreIsolated(t *testing.T) {
	b := New()

	var a, c int
	b.Subscribe("a", func(payload any) { a++ })
	b.Subscribe("c", func(payload any) { c++ })

	b.Publish("a", nil)

	assert.Equal(t, 1, a)
	assert.Zero(t, c)
}
