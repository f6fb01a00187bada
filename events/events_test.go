package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-property-market/events"
	"github.com/stretchr/testify/require"
)

var (
	_ events.Publisher = events.Nop{}
	_ events.Publisher = (*events.Recorder)(nil)
	_ events.Publisher = (*events.AMQPPublisher)(nil)
)

func TestRecorder(t *testing.T) {
	r := &events.Recorder{}
	require.NoError(t, r.PublishJSON(context.Background(), "notification.review_created", map[string]string{"id": "1"}))

	got := r.Events()
	require.Len(t, got, 1)
	require.Equal(t, "notification.review_created", got[0].RoutingKey)
	require.JSONEq(t, `{"id":"1"}`, string(got[0].Body))

	r.Err = errors.New("broker down")
	require.Error(t, r.PublishJSON(context.Background(), "x", 1))
	require.Len(t, r.Events(), 1)
}

func TestNewAMQPPublisherBadURL(t *testing.T) {
	_, err := events.NewAMQPPublisher("amqp://127.0.0.1:1/", "market.events")
	require.Error(t, err)
}
