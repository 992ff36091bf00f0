package builder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "pubsub-core/internal/core/errors"
	"pubsub-core/internal/packet"
)

// ═══════════════════════════════════════════════════════════════════
// Encode 测试
// ═══════════════════════════════════════════════════════════════════

func TestEncode_Header(t *testing.T) {
	t.Parallel()

	for _, f := range []packet.Format{packet.FormatJSON, packet.FormatXML, packet.FormatMsgpack} {
		frame, err := Encode(packet.Subscribe{Topic: "a"}, f)
		require.NoError(t, err)
		require.Greater(t, len(frame), packet.HeaderSize)

		assert.Equal(t, byte(f), frame[0], "format tag")
		length := binary.BigEndian.Uint16(frame[1:3])
		assert.Equal(t, len(frame)-packet.HeaderSize, int(length), "declared length")
	}
}

func TestEncode_JSONPayload(t *testing.T) {
	t.Parallel()

	frame, err := Encode(packet.Cancel{Topic: "x"}, packet.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"cancel","topic":"x"}`, string(frame[packet.HeaderSize:]))
}

func TestEncode_FrameTooLarge(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", packet.MaxPayloadSize)
	_, err := Encode(packet.Publish{Topic: "t", Value: big}, packet.FormatJSON)
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrFrameTooLarge))
}

func TestEncode_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Encode(packet.ListTopics{}, packet.Format(7))
	assert.True(t, errors.Is(err, coreerrors.ErrUnknownFormat))

	_, err = Encode(nil, packet.FormatJSON)
	assert.True(t, errors.Is(err, coreerrors.ErrInvalidParam))
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0x01, 0x00, 0x00}, EncodeEmpty(packet.FormatXML))
	assert.Equal(t, []byte{0x02, 0x00, 0x00}, EncodeEmpty(packet.FormatMsgpack))
}

func TestAppendFrame_Batches(t *testing.T) {
	t.Parallel()

	var buf []byte
	var err error
	buf, err = AppendFrame(buf, packet.Publish{Topic: "t", Value: "v1"}, packet.FormatJSON)
	require.NoError(t, err)
	first := len(buf)
	buf, err = AppendFrame(buf, packet.Publish{Topic: "t", Value: "v2"}, packet.FormatJSON)
	require.NoError(t, err)

	assert.Greater(t, len(buf), first)
	assert.Equal(t, byte(packet.FormatJSON), buf[first])
}

// ═══════════════════════════════════════════════════════════════════
// WriteFrame 测试
// ═══════════════════════════════════════════════════════════════════

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteFrame(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, packet.ListTopics{}, packet.FormatMsgpack))
	assert.Equal(t, byte(packet.FormatMsgpack), buf.Bytes()[0])

	err := WriteFrame(failingWriter{}, packet.ListTopics{}, packet.FormatJSON)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNetworkError))
}
