package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub(4)
	ch1, cancel1 := h.Subscribe("run")
	ch2, cancel2 := h.Subscribe("run")
	other, cancelOther := h.Subscribe("other")
	defer cancelOther()

	h.Publish("run", "hello")

	assert.Equal(t, "hello", <-ch1)
	assert.Equal(t, "hello", <-ch2)
	assert.Empty(t, other)

	cancel1()
	cancel1()
	assert.Equal(t, 1, h.Subscribers("run"))
	cancel2()
	assert.Zero(t, h.Subscribers("run"))
}

func TestPublishDropsWhenFull(t *testing.T) {
	h := NewHub(2)
	ch, cancel := h.Subscribe("run")
	defer cancel()

	for _, m := range []string{"a", "b", "c"} {
		h.Publish("run", m)
	}

	require.Len(t, ch, 2)
	assert.Equal(t, "a", <-ch)
	assert.Equal(t, "b", <-ch)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := NewHub(0)
	assert.NotPanics(t, func() { h.Publish("nobody", "msg") })
}
