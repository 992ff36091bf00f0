package packet

import (
	coreerrors "pubsub-core/internal/core/errors"
)

// Record 负载的逻辑结构，所有序列化格式共用
// 指针字段用于区分"字段缺失"和"空值"
type Record struct {
	Command *string   `json:"command" msgpack:"command"`
	Topic   *string   `json:"topic,omitempty" msgpack:"topic,omitempty"`
	Message *string   `json:"message,omitempty" msgpack:"message,omitempty"`
	Topics  *[]string `json:"topics,omitempty" msgpack:"topics,omitempty"`
}

// ToRecord 将消息转换为负载记录，只填充该变体的字段
func ToRecord(msg Message) Record {
	cmd := string(msg.Command())
	rec := Record{Command: &cmd}

	switch m := msg.(type) {
	case Subscribe:
		rec.Topic = strPtr(m.Topic)
	case Publish:
		rec.Topic = strPtr(m.Topic)
		rec.Message = strPtr(m.Value)
	case Cancel:
		rec.Topic = strPtr(m.Topic)
	case ListTopics:
	case TopicList:
		topics := m.Topics
		if topics == nil {
			topics = []string{}
		}
		rec.Topics = &topics
	}
	return rec
}

// FromRecord 按命令标识构造消息
// 缺少命令或必需字段返回 MalformedFrame，未知命令返回 UnknownCommand
func FromRecord(rec Record) (Message, error) {
	if rec.Command == nil {
		return nil, coreerrors.New(coreerrors.CodeMalformedFrame, "missing field \"command\"")
	}

	switch Command(*rec.Command) {
	case CmdSubscribe:
		topic, err := requireField(rec.Topic, "topic")
		if err != nil {
			return nil, err
		}
		return Subscribe{Topic: topic}, nil

	case CmdPublish:
		topic, err := requireField(rec.Topic, "topic")
		if err != nil {
			return nil, err
		}
		value, err := requireField(rec.Message, "message")
		if err != nil {
			return nil, err
		}
		return Publish{Topic: topic, Value: value}, nil

	case CmdCancel:
		topic, err := requireField(rec.Topic, "topic")
		if err != nil {
			return nil, err
		}
		return Cancel{Topic: topic}, nil

	case CmdListTopics, CmdListAlias:
		return ListTopics{}, nil

	case CmdTopicList:
		if rec.Topics == nil {
			return nil, coreerrors.Newf(coreerrors.CodeMalformedFrame, "topic_list: missing field %q", "topics")
		}
		topics := *rec.Topics
		if topics == nil {
			topics = []string{}
		}
		return TopicList{Topics: topics}, nil

	default:
		return nil, coreerrors.Newf(coreerrors.CodeUnknownCommand, "unknown command %q", *rec.Command)
	}
}

func requireField(field *string, name string) (string, error) {
	if field == nil {
		return "", coreerrors.Newf(coreerrors.CodeMalformedFrame, "missing field %q", name)
	}
	return *field, nil
}

func strPtr(s string) *string {
	return &s
}
