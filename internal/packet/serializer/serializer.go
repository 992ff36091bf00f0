// Package serializer 负载序列化，每个帧格式标签对应一个实现
package serializer

import (
	"encoding/xml"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"

	coreerrors "pubsub-core/internal/core/errors"
	"pubsub-core/internal/packet"
)

// Serializer 负载序列化接口
type Serializer interface {
	Format() packet.Format
	Marshal(rec *packet.Record) ([]byte, error)
	Unmarshal(data []byte, rec *packet.Record) error
}

var serializers = [...]Serializer{
	packet.FormatJSON:    jsonSerializer{},
	packet.FormatXML:     xmlSerializer{},
	packet.FormatMsgpack: msgpackSerializer{},
}

// For 返回格式对应的序列化器
func For(format packet.Format) (Serializer, error) {
	if !format.Valid() {
		return nil, coreerrors.Newf(coreerrors.CodeUnknownFormat, "unknown format tag %d", byte(format))
	}
	return serializers[format], nil
}

// ============================================================================
// JSON
// ============================================================================

type jsonSerializer struct{}

func (jsonSerializer) Format() packet.Format { return packet.FormatJSON }

func (jsonSerializer) Marshal(rec *packet.Record) ([]byte, error) {
	if err := checkStrings(rec, "json", utf8.ValidString); err != nil {
		return nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeSerializeFailed, "json marshal")
	}
	return data, nil
}

func (jsonSerializer) Unmarshal(data []byte, rec *packet.Record) error {
	if err := json.Unmarshal(data, rec); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeMalformedFrame, "json payload")
	}
	return nil
}

// ============================================================================
// XML
// ============================================================================

// xmlRecord XML 负载结构：
//
//	<pubsub><command>publish</command><topic>t</topic><message>v</message></pubsub>
//	<pubsub><command>topic_list</command><topics><topic>a</topic></topics></pubsub>
type xmlRecord struct {
	XMLName xml.Name   `xml:"pubsub"`
	Command *string    `xml:"command"`
	Topic   *string    `xml:"topic"`
	Message *string    `xml:"message"`
	Topics  *xmlTopics `xml:"topics"`
}

type xmlTopics struct {
	Topic []string `xml:"topic"`
}

type xmlSerializer struct{}

func (xmlSerializer) Format() packet.Format { return packet.FormatXML }

func (xmlSerializer) Marshal(rec *packet.Record) ([]byte, error) {
	if err := checkStrings(rec, "xml", validXMLText); err != nil {
		return nil, err
	}
	x := xmlRecord{
		Command: rec.Command,
		Topic:   rec.Topic,
		Message: rec.Message,
	}
	if rec.Topics != nil {
		x.Topics = &xmlTopics{Topic: *rec.Topics}
	}
	data, err := xml.Marshal(&x)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeSerializeFailed, "xml marshal")
	}
	return data, nil
}

func (xmlSerializer) Unmarshal(data []byte, rec *packet.Record) error {
	var x xmlRecord
	if err := xml.Unmarshal(data, &x); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeMalformedFrame, "xml payload")
	}
	rec.Command = x.Command
	rec.Topic = x.Topic
	rec.Message = x.Message
	if x.Topics != nil {
		topics := x.Topics.Topic
		if topics == nil {
			topics = []string{}
		}
		rec.Topics = &topics
	}
	return nil
}

// validXMLText 是否为合法 UTF-8 且只含 XML 1.0 Char
func validXMLText(s string) bool {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return false
			}
		}
		if !isXMLChar(r) {
			return false
		}
	}
	return true
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// checkStrings 文本格式无法无损表示的字段直接报错，编码器不会静默替换
func checkStrings(rec *packet.Record, format string, valid func(string) bool) error {
	check := func(field string, v *string) error {
		if v != nil && !valid(*v) {
			return coreerrors.Newf(coreerrors.CodeSerializeFailed, "%s cannot represent %s %q", format, field, *v)
		}
		return nil
	}
	if err := check("topic", rec.Topic); err != nil {
		return err
	}
	if err := check("message", rec.Message); err != nil {
		return err
	}
	if rec.Topics != nil {
		for i := range *rec.Topics {
			if err := check("topic", &(*rec.Topics)[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ============================================================================
// msgpack
// ============================================================================

type msgpackSerializer struct{}

func (msgpackSerializer) Format() packet.Format { return packet.FormatMsgpack }

func (msgpackSerializer) Marshal(rec *packet.Record) ([]byte, error) {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeSerializeFailed, "msgpack marshal")
	}
	return data, nil
}

func (msgpackSerializer) Unmarshal(data []byte, rec *packet.Record) error {
	if err := msgpack.Unmarshal(data, rec); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeMalformedFrame, "msgpack payload")
	}
	return nil
}
