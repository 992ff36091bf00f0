// Package topic 主题与订阅存储
//
// Store 只在事件循环中使用，不加锁。其他 goroutine 需要通过事件循环投递任务访问。
package topic

import (
	"sort"
	"strings"

	"github.com/google/btree"

	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/packet"
)

// ConnID 连接标识，由引擎分配
type ConnID uint64

// Subscriber 订阅项：连接 + 该连接协商的格式
type Subscriber struct {
	Conn   ConnID
	Format packet.Format
}

// Delivery 一次扇出投递
type Delivery struct {
	Subscriber
	// Matched 命中的订阅主题（不一定等于发布主题）
	Matched string
}

// SendFunc 扇出回调，在快照之后调用，可以安全地修改 Store
type SendFunc func(d Delivery)

// FanoutMode 扇出规则
type FanoutMode string

const (
	// FanoutDescendants 发布到 T 时投递给所有以 T 为前缀的主题（含 T）
	FanoutDescendants FanoutMode = "descendants"
	// FanoutAncestors 发布到 T 时投递给所有是 T 前缀的主题（含 T）
	FanoutAncestors FanoutMode = "ancestors"
)

// ParseFanoutMode 解析扇出规则，空字符串为 descendants
func ParseFanoutMode(s string) (FanoutMode, error) {
	switch FanoutMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FanoutDescendants:
		return FanoutDescendants, nil
	case FanoutAncestors:
		return FanoutAncestors, nil
	default:
		return "", coreerrors.Newf(coreerrors.CodeInvalidParam, "unknown fanout mode %q", s)
	}
}

type topicEntry struct {
	name     string
	value    string
	hasValue bool
	subs     []Subscriber
}

// Options Store 配置
type Options struct {
	Mode   FanoutMode
	Logger corelog.Logger
	// OnTopicCreated 主题首次出现时调用
	OnTopicCreated func(name string)
}

// Store 主题存储
type Store struct {
	mode    FanoutMode
	logger  corelog.Logger
	created func(string)

	index  *btree.BTreeG[string]
	topics map[string]*topicEntry
	byConn map[ConnID]map[string]struct{}
	nsubs  int
}

// NewStore 创建主题存储
func NewStore(opts Options) *Store {
	if opts.Mode == "" {
		opts.Mode = FanoutDescendants
	}
	if opts.Logger == nil {
		opts.Logger = corelog.Default()
	}
	return &Store{
		mode:    opts.Mode,
		logger:  opts.Logger,
		created: opts.OnTopicCreated,
		index:   btree.NewG[string](32, func(a, b string) bool { return a < b }),
		topics:  make(map[string]*topicEntry),
		byConn:  make(map[ConnID]map[string]struct{}),
	}
}

// Mode 返回扇出规则
func (s *Store) Mode() FanoutMode {
	return s.mode
}

func (s *Store) getOrCreate(name string) *topicEntry {
	if t, ok := s.topics[name]; ok {
		return t
	}
	t := &topicEntry{name: name}
	s.topics[name] = t
	s.index.ReplaceOrInsert(name)
	s.logger.Debugf("Store: topic %q created", name)
	if s.created != nil {
		s.created(name)
	}
	return t
}

// Publish 设置主题最新值并按扇出规则投递
//
// 命中主题按名称升序，主题内按订阅顺序；同一连接在一次发布中只投递一次。
// 返回投递次数。
func (s *Store) Publish(topic, value string, send SendFunc) int {
	t := s.getOrCreate(topic)
	t.value = value
	t.hasValue = true

	deliveries := s.match(topic)
	if send != nil {
		for _, d := range deliveries {
			send(d)
		}
	}
	return len(deliveries)
}

// match 计算投递快照
func (s *Store) match(topic string) []Delivery {
	var deliveries []Delivery
	seen := make(map[ConnID]struct{})

	collect := func(t *topicEntry) {
		for _, sub := range t.subs {
			if _, dup := seen[sub.Conn]; dup {
				continue
			}
			seen[sub.Conn] = struct{}{}
			deliveries = append(deliveries, Delivery{Subscriber: sub, Matched: t.name})
		}
	}

	switch s.mode {
	case FanoutAncestors:
		for i := 0; i <= len(topic); i++ {
			if t, ok := s.topics[topic[:i]]; ok {
				collect(t)
			}
		}
	default:
		s.index.AscendGreaterOrEqual(topic, func(name string) bool {
			if !strings.HasPrefix(name, topic) {
				return false
			}
			collect(s.topics[name])
			return true
		})
	}
	return deliveries
}

// Subscribe 订阅主题，已订阅时不做任何修改
// 返回是否新增了订阅项
func (s *Store) Subscribe(topic string, conn ConnID, format packet.Format) bool {
	t := s.getOrCreate(topic)
	for _, sub := range t.subs {
		if sub.Conn == conn {
			s.logger.Debugf("Store: conn %d already subscribed to %q", conn, topic)
			return false
		}
	}
	t.subs = append(t.subs, Subscriber{Conn: conn, Format: format})

	set, ok := s.byConn[conn]
	if !ok {
		set = make(map[string]struct{})
		s.byConn[conn] = set
	}
	set[topic] = struct{}{}
	s.nsubs++
	s.logger.Debugf("Store: conn %d subscribed to %q as %s", conn, topic, format)
	return true
}

// Unsubscribe 取消订阅，未订阅时只记录日志
// 返回是否删除了订阅项
func (s *Store) Unsubscribe(topic string, conn ConnID) bool {
	t, ok := s.topics[topic]
	if !ok || !t.remove(conn) {
		s.logger.Debugf("Store: conn %d not subscribed to %q", conn, topic)
		return false
	}
	s.nsubs--
	if set, ok := s.byConn[conn]; ok {
		delete(set, topic)
		if len(set) == 0 {
			delete(s.byConn, conn)
		}
	}
	s.logger.Debugf("Store: conn %d unsubscribed from %q", conn, topic)
	return true
}

// RemoveConnection 删除连接的所有订阅项，返回删除数量
func (s *Store) RemoveConnection(conn ConnID) int {
	set, ok := s.byConn[conn]
	if !ok {
		return 0
	}
	delete(s.byConn, conn)

	removed := 0
	for name := range set {
		if t, ok := s.topics[name]; ok && t.remove(conn) {
			removed++
		}
	}
	s.nsubs -= removed
	if removed > 0 {
		s.logger.Debugf("Store: conn %d removed from %d topics", conn, removed)
	}
	return removed
}

func (t *topicEntry) remove(conn ConnID) bool {
	for i, sub := range t.subs {
		if sub.Conn == conn {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return true
		}
	}
	return false
}

// ListTopics 返回所有已知主题（升序）
func (s *Store) ListTopics() []string {
	names := make([]string, 0, s.index.Len())
	s.index.Ascend(func(name string) bool {
		names = append(names, name)
		return true
	})
	return names
}

// LastValue 返回主题最新值
func (s *Store) LastValue(topic string) (string, bool) {
	t, ok := s.topics[topic]
	if !ok || !t.hasValue {
		return "", false
	}
	return t.value, true
}

// Subscribers 返回主题订阅项副本（订阅顺序）
func (s *Store) Subscribers(topic string) []Subscriber {
	t, ok := s.topics[topic]
	if !ok {
		return nil
	}
	out := make([]Subscriber, len(t.subs))
	copy(out, t.subs)
	return out
}

// ConnTopics 返回连接订阅的主题（升序）
func (s *Store) ConnTopics(conn ConnID) []string {
	set := s.byConn[conn]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info 主题详情
type Info struct {
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	HasValue    bool   `json:"has_value"`
	Subscribers int    `json:"subscribers"`
}

// Info 返回主题详情
func (s *Store) Info(topic string) (Info, bool) {
	t, ok := s.topics[topic]
	if !ok {
		return Info{}, false
	}
	return Info{
		Name:        t.name,
		Value:       t.value,
		HasValue:    t.hasValue,
		Subscribers: len(t.subs),
	}, true
}

// Stats 存储统计
type Stats struct {
	Topics        int `json:"topics"`
	Subscriptions int `json:"subscriptions"`
	Subscribers   int `json:"subscribers"`
}

// Stats 返回存储统计
func (s *Store) Stats() Stats {
	return Stats{
		Topics:        len(s.topics),
		Subscriptions: s.nsubs,
		Subscribers:   len(s.byConn),
	}
}
