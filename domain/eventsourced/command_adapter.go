package eventsourced

import (
	"context"

	"foodcart/messaging"
)

// commandMessageHandler 将 EventSourcedService 适配为 IMessageHandler
type commandMessageHandler[T IEventSourcedAggregate[string]] struct {
	name        string
	service     *EventSourcedService[T]
	commandType string
	factory     func(msg messaging.IMessage) (IEventSourcedCommand, error)
}

func (h *commandMessageHandler[T]) Handle(ctx context.Context, message messaging.IMessage) error {
	if message.GetType() != messaging.MessageTypeCommand {
		return nil
	}
	mt, _ := message.GetMetadata()["command_type"].(string)
	if h.commandType != "" && mt != h.commandType {
		return nil
	}
	domainCmd, err := h.factory(message)
	if err != nil {
		return err
	}
	return h.service.ExecuteCommand(ctx, domainCmd)
}

func (h *commandMessageHandler[T]) Type() string { return h.name }

// AsCommandMessageHandler 将服务适配为 IMessageHandler，供 MessageBus 订阅。
//
// factory 负责将消息载荷还原为领域命令；commandType 用于按
// metadata["command_type"] 过滤，为空时处理所有命令消息。
func (s *EventSourcedService[T]) AsCommandMessageHandler(commandType string, factory func(msg messaging.IMessage) (IEventSourcedCommand, error)) messaging.IMessageHandler {
	return &commandMessageHandler[T]{
		name:        "eventsourced.service.command_adapter",
		service:     s,
		commandType: commandType,
		factory:     factory,
	}
}
