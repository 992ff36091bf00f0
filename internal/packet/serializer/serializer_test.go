package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "pubsub-core/internal/core/errors"
	"pubsub-core/internal/packet"
)

var allFormats = []packet.Format{packet.FormatJSON, packet.FormatXML, packet.FormatMsgpack}

func TestFor(t *testing.T) {
	t.Parallel()

	for _, f := range allFormats {
		s, err := For(f)
		require.NoError(t, err)
		assert.Equal(t, f, s.Format())
	}

	_, err := For(packet.Format(9))
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeUnknownFormat))
}

func TestSerializer_RecordRoundTrip(t *testing.T) {
	t.Parallel()

	msgs := []packet.Message{
		packet.Subscribe{Topic: "sensors/temp"},
		packet.Publish{Topic: "t", Value: "21.5"},
		packet.Publish{Topic: "t", Value: ""},
		packet.Cancel{Topic: "a/b"},
		packet.ListTopics{},
		packet.TopicList{Topics: []string{"a", "a/b"}},
		packet.TopicList{Topics: []string{}},
	}

	for _, f := range allFormats {
		s, _ := For(f)
		for _, msg := range msgs {
			t.Run(f.String()+"/"+string(msg.Command()), func(t *testing.T) {
				rec := packet.ToRecord(msg)
				data, err := s.Marshal(&rec)
				require.NoError(t, err)

				var out packet.Record
				require.NoError(t, s.Unmarshal(data, &out))

				got, err := packet.FromRecord(out)
				require.NoError(t, err)
				assert.Equal(t, msg, got)
			})
		}
	}
}

func TestJSON_WireShape(t *testing.T) {
	t.Parallel()

	s, _ := For(packet.FormatJSON)
	rec := packet.ToRecord(packet.Publish{Topic: "t", Value: "v"})
	data, err := s.Marshal(&rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"publish","topic":"t","message":"v"}`, string(data))
}

func TestXML_WireShape(t *testing.T) {
	t.Parallel()

	s, _ := For(packet.FormatXML)
	rec := packet.ToRecord(packet.TopicList{Topics: []string{"a", "b"}})
	data, err := s.Marshal(&rec)
	require.NoError(t, err)
	assert.Equal(t,
		"<pubsub><command>topic_list</command><topics><topic>a</topic><topic>b</topic></topics></pubsub>",
		string(data))

	var out packet.Record
	require.NoError(t, s.Unmarshal([]byte("<pubsub><command>subscribe</command><topic>x</topic></pubsub>"), &out))
	got, err := packet.FromRecord(out)
	require.NoError(t, err)
	assert.Equal(t, packet.Subscribe{Topic: "x"}, got)
}

func TestMsgpack_BinaryValue(t *testing.T) {
	t.Parallel()

	s, _ := For(packet.FormatMsgpack)
	msg := packet.Publish{Topic: "raw", Value: string([]byte{0x00, 0xff, 0x10, 0x80})}
	rec := packet.ToRecord(msg)
	data, err := s.Marshal(&rec)
	require.NoError(t, err)

	var out packet.Record
	require.NoError(t, s.Unmarshal(data, &out))
	got, err := packet.FromRecord(out)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestSerializer_MalformedPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format packet.Format
		data   string
	}{
		{packet.FormatJSON, `{"command":`},
		{packet.FormatJSON, `{"command":5}`},
		{packet.FormatXML, `<pubsub><command>publish`},
		{packet.FormatXML, `not xml at all`},
		{packet.FormatMsgpack, "\xc1"},
	}

	for _, tt := range tests {
		s, _ := For(tt.format)
		var rec packet.Record
		err := s.Unmarshal([]byte(tt.data), &rec)
		require.Error(t, err, "%s %q", tt.format, tt.data)
		assert.True(t, coreerrors.IsCode(err, coreerrors.CodeMalformedFrame), "%s %q", tt.format, tt.data)
	}
}

func TestSerializer_TextValuesRoundTrip(t *testing.T) {
	t.Parallel()

	values := []string{"tab\there", "line\nbreak\r\n", "温度 21.5°C", "�", "emoji \U0001F600", "<a>&amp;</a>"}
	for _, f := range allFormats {
		s, _ := For(f)
		for _, v := range values {
			msg := packet.Publish{Topic: "t", Value: v}
			rec := packet.ToRecord(msg)
			data, err := s.Marshal(&rec)
			require.NoError(t, err, "%s %q", f, v)

			var out packet.Record
			require.NoError(t, s.Unmarshal(data, &out))
			got, err := packet.FromRecord(out)
			require.NoError(t, err)
			assert.Equal(t, msg, got, "%s %q", f, v)
		}
	}
}

func TestSerializer_UnrepresentableValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  packet.Message
		json bool
		xml  bool
	}{
		{"invalid utf8", packet.Publish{Topic: "t", Value: "\xff\xfe"}, false, false},
		{"control char", packet.Publish{Topic: "t", Value: "a\x01b"}, true, false},
		{"nul", packet.Publish{Topic: "t", Value: "\x00"}, true, false},
		{"invalid utf8 topic", packet.Subscribe{Topic: "a\x80"}, false, false},
		{"topic list entry", packet.TopicList{Topics: []string{"ok", "bad\x02"}}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, f := range allFormats {
				s, _ := For(f)
				rec := packet.ToRecord(tt.msg)
				data, err := s.Marshal(&rec)

				ok := f == packet.FormatMsgpack ||
					f == packet.FormatJSON && tt.json ||
					f == packet.FormatXML && tt.xml
				if !ok {
					require.Error(t, err, f.String())
					assert.True(t, coreerrors.IsCode(err, coreerrors.CodeSerializeFailed), f.String())
					continue
				}

				// 能编码的格式必须原样还原
				require.NoError(t, err, f.String())
				var out packet.Record
				require.NoError(t, s.Unmarshal(data, &out))
				got, err := packet.FromRecord(out)
				require.NoError(t, err)
				assert.Equal(t, tt.msg, got, f.String())
			}
		})
	}
}
