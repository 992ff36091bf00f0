// Package builder 构建协议帧
package builder

import (
	"encoding/binary"
	"io"

	coreerrors "pubsub-core/internal/core/errors"
	"pubsub-core/internal/packet"
	"pubsub-core/internal/packet/serializer"
)

// Encode 按格式序列化消息并加上帧头
func Encode(msg packet.Message, format packet.Format) ([]byte, error) {
	return AppendFrame(nil, msg, format)
}

// AppendFrame 将编码后的帧追加到 dst
func AppendFrame(dst []byte, msg packet.Message, format packet.Format) ([]byte, error) {
	if msg == nil {
		return dst, coreerrors.New(coreerrors.CodeInvalidParam, "nil message")
	}
	s, err := serializer.For(format)
	if err != nil {
		return dst, err
	}

	rec := packet.ToRecord(msg)
	payload, err := s.Marshal(&rec)
	if err != nil {
		return dst, err
	}
	if len(payload) > packet.MaxPayloadSize {
		return dst, coreerrors.Newf(coreerrors.CodeFrameTooLarge,
			"%s payload is %d bytes, limit %d", format, len(payload), packet.MaxPayloadSize)
	}

	dst = appendHeader(dst, format, len(payload))
	return append(dst, payload...), nil
}

// EncodeEmpty 构建零长度帧（"当前没有消息"）
func EncodeEmpty(format packet.Format) []byte {
	return appendHeader(make([]byte, 0, packet.HeaderSize), format, 0)
}

// WriteFrame 编码消息并写入 writer
func WriteFrame(w io.Writer, msg packet.Message, format packet.Format) error {
	frame, err := Encode(msg, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeNetworkError, "write frame")
	}
	return nil
}

func appendHeader(dst []byte, format packet.Format, length int) []byte {
	dst = append(dst, byte(format))
	return binary.BigEndian.AppendUint16(dst, uint16(length))
}
