// Package natsjetstream 基于 NATS JetStream 的消息传输，
// 多实例部署下做事件分发，durable consumer 提供断点续传
package natsjetstream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"foodcart/bridge"
	"foodcart/eventing"
	"foodcart/logging"
	"foodcart/messaging"
)

// Config JetStream 传输配置，零值字段取默认值
type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
	DurablePrefix string
	AckWait       time.Duration
	MaxAckPending int
	Logger        logging.Logger
	Conn          *nats.Conn // 为空时按 URL 自建连接，Close 时一并关闭
	Serializer    bridge.ISerializer

	Retention         string // workqueue|limits|interest，默认 workqueue
	MaxBytes          int64  // 0 不限制
	Replicas          int    // 0 取服务端默认
	MaxMsgsPerSubject int64  // 每主题最大消息数，默认 -1
}

// Transport 把每种消息类型映射到一个主题与同名 durable 队列订阅。
// 消息按类型发到 <SubjectPrefix><type>，消费端手动 Ack。
type Transport struct {
	cfg      Config
	logger   logging.Logger
	conn     *nats.Conn
	js       nats.JetStreamContext
	ownsConn bool

	handlers map[string][]messaging.IMessageHandler
	subs     map[string]*nats.Subscription

	mu      sync.RWMutex
	running bool
}

func NewTransport(cfg Config) *Transport {
	if cfg.Stream == "" {
		cfg.Stream = "FOODCART"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "foodcart."
	}
	if cfg.DurablePrefix == "" {
		cfg.DurablePrefix = "foodcart-"
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.MaxAckPending <= 0 {
		cfg.MaxAckPending = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.ComponentLogger("transport.nats")
	}
	if cfg.Serializer == nil {
		cfg.Serializer = bridge.NewJSONSerializer()
	}
	return &Transport{
		cfg:      cfg,
		logger:   cfg.Logger,
		handlers: make(map[string][]messaging.IMessageHandler),
		subs:     make(map[string]*nats.Subscription),
	}
}

// Publish 序列化后发布到消息类型对应的主题
func (t *Transport) Publish(ctx context.Context, message messaging.IMessage) error {
	t.mu.RLock()
	js := t.js
	running := t.running
	t.mu.RUnlock()
	if !running || js == nil {
		return errors.New("nats transport not running")
	}

	data, err := t.cfg.Serializer.SerializeMessage(message)
	if err != nil {
		return err
	}
	_, err = js.Publish(t.subjectName(message.GetType()), data)
	return err
}

// PublishAll 逐条发布，JetStream 无批量原子性，失败即停止
func (t *Transport) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	for _, msg := range messages {
		if err := t.Publish(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe 注册处理器，传输已启动时立即建立 durable 订阅
func (t *Transport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handlers[messageType] = append(t.handlers[messageType], handler)
	if t.running {
		return t.subscribeLocked(messageType)
	}
	return nil
}

// Unsubscribe 移除处理器，该类型最后一个处理器移除后 Drain 订阅
func (t *Transport) Unsubscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	handlers := t.handlers[messageType]
	for i, h := range handlers {
		if h == handler {
			t.handlers[messageType] = append(handlers[:i], handlers[i+1:]...)
			break
		}
	}
	if len(t.handlers[messageType]) == 0 {
		if sub, ok := t.subs[messageType]; ok {
			_ = sub.Drain()
			delete(t.subs, messageType)
		}
	}
	return nil
}

// Start 建立连接、确保流存在，并为已注册的消息类型建立订阅
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errors.New("nats transport already running")
	}
	if err := t.ensureConnection(); err != nil {
		return err
	}
	if err := t.ensureStream(); err != nil {
		return err
	}
	for messageType := range t.handlers {
		if err := t.subscribeLocked(messageType); err != nil {
			return err
		}
	}
	t.running = true
	return nil
}

// Close Drain 全部订阅，自建的连接一并关闭
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		if t.ownsConn && t.conn != nil {
			t.conn.Close()
		}
		return nil
	}
	t.running = false
	for messageType, sub := range t.subs {
		_ = sub.Drain()
		delete(t.subs, messageType)
	}
	if t.ownsConn && t.conn != nil {
		t.conn.Close()
	}
	t.conn = nil
	t.js = nil
	return nil
}

// Stats 返回运行状态与订阅规模
func (t *Transport) Stats() messaging.TransportStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	handlerCount := 0
	messageTypes := make([]string, 0, len(t.handlers))
	for messageType, handlers := range t.handlers {
		messageTypes = append(messageTypes, messageType)
		handlerCount += len(handlers)
	}
	return messaging.TransportStats{
		Running:      t.running,
		HandlerCount: handlerCount,
		MessageTypes: messageTypes,
	}
}

func (t *Transport) ensureConnection() error {
	if t.conn != nil && t.js != nil {
		return nil
	}
	if t.cfg.Conn != nil {
		t.conn = t.cfg.Conn
	} else {
		if t.cfg.URL == "" {
			t.cfg.URL = nats.DefaultURL
		}
		conn, err := nats.Connect(t.cfg.URL)
		if err != nil {
			return err
		}
		t.conn = conn
		t.ownsConn = true
	}
	js, err := t.conn.JetStream()
	if err != nil {
		return err
	}
	t.js = js
	return nil
}

// ensureStream 流不存在时按配置创建，已存在则原样使用
func (t *Transport) ensureStream() error {
	_, err := t.js.StreamInfo(t.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(err.Error(), "stream not found") {
		return err
	}
	_, err = t.js.AddStream(t.streamConfig())
	return err
}

func (t *Transport) streamConfig() *nats.StreamConfig {
	retention := nats.WorkQueuePolicy
	switch strings.ToLower(t.cfg.Retention) {
	case "limits":
		retention = nats.LimitsPolicy
	case "interest":
		retention = nats.InterestPolicy
	}
	sc := &nats.StreamConfig{
		Name:              t.cfg.Stream,
		Subjects:          []string{t.cfg.SubjectPrefix + ">"},
		Retention:         retention,
		MaxMsgsPerSubject: -1,
	}
	if t.cfg.MaxMsgsPerSubject != 0 {
		sc.MaxMsgsPerSubject = t.cfg.MaxMsgsPerSubject
	}
	if t.cfg.MaxBytes > 0 {
		sc.MaxBytes = t.cfg.MaxBytes
	}
	if t.cfg.Replicas > 0 {
		sc.Replicas = t.cfg.Replicas
	}
	return sc
}

func (t *Transport) subscribeLocked(messageType string) error {
	if _, exists := t.subs[messageType]; exists {
		return nil
	}
	subject := t.subjectName(messageType)
	durable := t.cfg.DurablePrefix + messageType
	sub, err := t.js.QueueSubscribe(subject, durable, t.consumeMessage(messageType),
		nats.ManualAck(),
		nats.Durable(durable),
		nats.AckWait(t.cfg.AckWait),
		nats.MaxAckPending(t.cfg.MaxAckPending))
	if err != nil {
		return err
	}
	t.subs[messageType] = sub
	return nil
}

// consumeMessage 反序列化并分发。
// 解码失败也 Ack，坏消息重投无意义，记日志后丢弃。
func (t *Transport) consumeMessage(defaultType string) nats.MsgHandler {
	return func(msg *nats.Msg) {
		decoded, err := t.cfg.Serializer.DeserializeMessage(msg.Data)
		if err != nil {
			t.logger.Warn(context.Background(), "decode nats message failed", logging.Error(err))
			_ = msg.Ack()
			return
		}
		// 旧消息可能没带类型字段，用订阅主题的类型补齐
		if decoded.GetType() == "" {
			switch m := decoded.(type) {
			case *messaging.Message:
				m.Type = defaultType
			case *eventing.Event:
				m.Type = defaultType
			}
		}
		t.dispatch(context.Background(), decoded)
		if err := msg.Ack(); err != nil {
			t.logger.Warn(context.Background(), "nats ack failed", logging.Error(err))
		}
	}
}

func (t *Transport) dispatch(ctx context.Context, message messaging.IMessage) {
	t.mu.RLock()
	exact := t.handlers[message.GetType()]
	wildcard := t.handlers["*"]
	handlers := make([]messaging.IMessageHandler, 0, len(exact)+len(wildcard))
	handlers = append(handlers, exact...)
	handlers = append(handlers, wildcard...)
	t.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, message); err != nil {
			t.logger.Warn(ctx, "message handler failed",
				logging.String("message_type", message.GetType()),
				logging.String("message_id", message.GetID()),
				logging.Error(err))
		}
	}
}

func (t *Transport) subjectName(messageType string) string {
	return t.cfg.SubjectPrefix + messageType
}
