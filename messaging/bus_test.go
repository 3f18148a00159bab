package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureTransport struct {
	published    []IMessage
	batches      [][]IMessage
	subscribed   map[string]int
	unsubscribed map[string]int
	publishErr   error
	trace        *[]string
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{
		subscribed:   make(map[string]int),
		unsubscribed: make(map[string]int),
	}
}

func (m *captureTransport) Publish(ctx context.Context, message IMessage) error {
	if m.trace != nil {
		*m.trace = append(*m.trace, "transport")
	}
	m.published = append(m.published, message)
	return m.publishErr
}

func (m *captureTransport) PublishAll(ctx context.Context, messages []IMessage) error {
	m.batches = append(m.batches, messages)
	return m.publishErr
}

func (m *captureTransport) Subscribe(messageType string, handler IMessageHandler) error {
	m.subscribed[messageType]++
	return nil
}

func (m *captureTransport) Unsubscribe(messageType string, handler IMessageHandler) error {
	m.unsubscribed[messageType]++
	return nil
}

func (m *captureTransport) Start(ctx context.Context) error { return nil }
func (m *captureTransport) Close() error                    { return nil }
func (m *captureTransport) Stats() TransportStats           { return TransportStats{} }

type traceMiddleware struct {
	name  string
	trace *[]string
	err   error
}

func (mw traceMiddleware) Handle(ctx context.Context, message IMessage, next HandlerFunc) error {
	*mw.trace = append(*mw.trace, mw.name)
	if mw.err != nil {
		return mw.err
	}
	return next(ctx, message)
}

func (mw traceMiddleware) Name() string { return mw.name }

type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, message IMessage) error { return nil }
func (noopHandler) Type() string                                       { return "noop" }

// 中间件按注册顺序执行，传输层最后收到消息
func TestMessageBus_PublishRunsMiddlewareInOrder(t *testing.T) {
	trace := make([]string, 0, 3)
	transport := newCaptureTransport()
	transport.trace = &trace

	bus := NewMessageBus(transport)
	bus.Use(traceMiddleware{name: "first", trace: &trace})
	bus.Use(traceMiddleware{name: "second", trace: &trace})

	msg := &Message{ID: "msg-1", Type: "ProductSelected"}
	require.NoError(t, bus.Publish(context.Background(), msg))

	assert.Equal(t, []string{"first", "second", "transport"}, trace)
	require.Len(t, transport.published, 1)
	assert.Same(t, msg, transport.published[0].(*Message))
}

// 任一消息被中间件拒绝时整批不进传输层
func TestMessageBus_PublishAllMiddlewareError(t *testing.T) {
	trace := make([]string, 0, 1)
	transport := newCaptureTransport()

	rejectErr := errors.New("middleware rejected")
	bus := NewMessageBus(transport)
	bus.Use(traceMiddleware{name: "reject", trace: &trace, err: rejectErr})

	msg := &Message{ID: "msg-err", Type: "ProductSelected"}
	err := bus.PublishAll(context.Background(), []IMessage{msg})
	require.Error(t, err)
	assert.ErrorIs(t, err, rejectErr)
	assert.Empty(t, transport.batches)
	assert.Equal(t, []string{"reject"}, trace)
}

func TestMessageBus_PublishAllKeepsBatchOrder(t *testing.T) {
	transport := newCaptureTransport()
	bus := NewMessageBus(transport)

	msg1 := &Message{ID: "msg-1", Type: "ProductSelected"}
	msg2 := &Message{ID: "msg-2", Type: "ProductSelected"}
	require.NoError(t, bus.PublishAll(context.Background(), []IMessage{msg1, msg2}))

	require.Len(t, transport.batches, 1)
	batch := transport.batches[0]
	require.Len(t, batch, 2)
	assert.Same(t, msg1, batch[0].(*Message))
	assert.Same(t, msg2, batch[1].(*Message))
}

func TestMessageBus_PublishAllEmptyIsNoop(t *testing.T) {
	transport := newCaptureTransport()
	bus := NewMessageBus(transport)

	require.NoError(t, bus.PublishAll(context.Background(), nil))
	assert.Empty(t, transport.batches)
}

func TestMessageBus_SubscribeDelegation(t *testing.T) {
	transport := newCaptureTransport()
	bus := NewMessageBus(transport)

	handler := noopHandler{}
	require.NoError(t, bus.Subscribe(context.Background(), "ProductSelected", handler))
	assert.Equal(t, 1, transport.subscribed["ProductSelected"])

	require.NoError(t, bus.Unsubscribe(context.Background(), "ProductSelected", handler))
	assert.Equal(t, 1, transport.unsubscribed["ProductSelected"])
}
