// Package parser 解析协议帧
package parser

import (
	"encoding/binary"
	"errors"
	"io"

	coreerrors "pubsub-core/internal/core/errors"
	"pubsub-core/internal/packet"
	"pubsub-core/internal/packet/serializer"
)

// Decode 从 reader 读取一帧并解码
// 零长度帧返回 (nil, nil)，调用方应视为"当前没有消息"
func Decode(r io.Reader) (packet.Message, error) {
	_, msg, err := DecodeFrame(r)
	return msg, err
}

// DecodeFrame 读取一帧，同时返回帧的格式标签
// 只读取帧头声明的字节数，不会越过帧边界
func DecodeFrame(r io.Reader) (packet.Format, packet.Message, error) {
	var header [packet.HeaderSize]byte
	if n, err := io.ReadFull(r, header[:]); err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return 0, nil, coreerrors.Wrap(err, coreerrors.CodePeerClosed, "connection closed")
		}
		return 0, nil, coreerrors.Wrap(err, coreerrors.CodeMalformedFrame, "truncated header")
	}

	format, length := parseHeader(header[:])
	if length == 0 {
		return format, nil, nil
	}
	if !format.Valid() {
		return format, nil, unknownFormat(format)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return format, nil, coreerrors.Wrapf(err, coreerrors.CodeMalformedFrame, "truncated payload, want %d bytes", length)
	}

	msg, err := DecodePayload(format, payload)
	return format, msg, err
}

// Scan 在已缓冲的字节上解析一帧，不阻塞
//
// 返回值：
//   - advance > 0, msg != nil：完整的一帧
//   - advance > 0, msg == nil, err == nil：零长度帧
//   - advance == 0, err == nil：缓冲区中还没有完整的帧
//   - err != nil：帧无法解码，连接应当关闭
func Scan(buf []byte) (advance int, msg packet.Message, err error) {
	advance, _, msg, err = ScanFrame(buf)
	return advance, msg, err
}

// ScanFrame 与 Scan 相同，同时返回帧的格式标签
func ScanFrame(buf []byte) (advance int, format packet.Format, msg packet.Message, err error) {
	if len(buf) < packet.HeaderSize {
		return 0, 0, nil, nil
	}

	format, length := parseHeader(buf)
	if length == 0 {
		return packet.HeaderSize, format, nil, nil
	}
	if !format.Valid() {
		return 0, format, nil, unknownFormat(format)
	}

	end := packet.HeaderSize + length
	if len(buf) < end {
		return 0, format, nil, nil
	}

	msg, err = DecodePayload(format, buf[packet.HeaderSize:end])
	if err != nil {
		return 0, format, nil, err
	}
	return end, format, msg, nil
}

// DecodePayload 按格式解析负载并构造消息
func DecodePayload(format packet.Format, payload []byte) (packet.Message, error) {
	s, err := serializer.For(format)
	if err != nil {
		return nil, err
	}

	var rec packet.Record
	if err := s.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}
	return packet.FromRecord(rec)
}

func parseHeader(b []byte) (packet.Format, int) {
	return packet.Format(b[0]), int(binary.BigEndian.Uint16(b[1:3]))
}

func unknownFormat(f packet.Format) error {
	return coreerrors.Newf(coreerrors.CodeUnknownFormat, "unknown format tag %d", byte(f))
}
