// Package packet 定义发布/订阅协议的消息类型和帧格式
//
// 帧格式（网络字节序）：
//
//	byte 0     : 序列化格式标签（0 JSON, 1 XML, 2 msgpack）
//	bytes 1-2  : 负载长度 L，0 <= L <= 65535
//	bytes 3..  : L 字节负载
//
// L == 0 表示"当前没有消息"，不会被解码为 Message。
package packet

// Command 负载中的命令标识
type Command string

const (
	CmdSubscribe  Command = "subscribe"
	CmdPublish    Command = "publish"
	CmdCancel     Command = "cancel"
	CmdListTopics Command = "list_topics"
	CmdTopicList  Command = "topic_list"

	// CmdListAlias 旧客户端使用的 list_topics 别名
	CmdListAlias Command = "list"
)

// Message 协议消息（封闭的和类型）
// 只有本包内定义的变体实现该接口
type Message interface {
	Command() Command
	message()
}

// Subscribe 订阅主题
type Subscribe struct {
	Topic string
}

// Publish 向主题发布值，值可以为空字符串
type Publish struct {
	Topic string
	Value string
}

// Cancel 取消订阅
type Cancel struct {
	Topic string
}

// ListTopics 请求主题列表
type ListTopics struct{}

// TopicList ListTopics 的应答
type TopicList struct {
	Topics []string
}

func (Subscribe) Command() Command  { return CmdSubscribe }
func (Publish) Command() Command    { return CmdPublish }
func (Cancel) Command() Command     { return CmdCancel }
func (ListTopics) Command() Command { return CmdListTopics }
func (TopicList) Command() Command  { return CmdTopicList }

func (Subscribe) message()  {}
func (Publish) message()    {}
func (Cancel) message()     {}
func (ListTopics) message() {}
func (TopicList) message()  {}
