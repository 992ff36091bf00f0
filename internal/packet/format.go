package packet

import (
	"strings"

	coreerrors "pubsub-core/internal/core/errors"
)

// Format 负载序列化格式（帧的第一个字节）
type Format byte

const (
	FormatJSON    Format = 0
	FormatXML     Format = 1
	FormatMsgpack Format = 2
)

const (
	// HeaderSize 帧头长度：1 字节格式 + 2 字节长度
	HeaderSize = 3
	// MaxPayloadSize 负载最大长度
	MaxPayloadSize = 65535
)

// Valid 是否为支持的格式
func (f Format) Valid() bool {
	return f <= FormatMsgpack
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// ParseFormat 解析格式名称（json / xml / msgpack，pickle 视为 msgpack）
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "0":
		return FormatJSON, nil
	case "xml", "1":
		return FormatXML, nil
	case "msgpack", "pickle", "binary", "2":
		return FormatMsgpack, nil
	default:
		return 0, coreerrors.Newf(coreerrors.CodeUnknownFormat, "unknown format %q", name)
	}
}
