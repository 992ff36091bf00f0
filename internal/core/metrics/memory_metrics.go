package metrics

import (
	"sort"
	"strings"
	"sync"
)

// MemoryMetrics 内存指标实现
type MemoryMetrics struct {
	counters map[string]float64
	gauges   map[string]float64
	mu       sync.RWMutex
}

// NewMemoryMetrics 创建内存指标收集器
func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{
		counters: make(map[string]float64),
		gauges:   make(map[string]float64),
	}
}

// IncrementCounter 增加计数器
func (m *MemoryMetrics) IncrementCounter(name string, labels map[string]string) error {
	return m.AddCounter(name, 1, labels)
}

// AddCounter 增加计数器指定值
func (m *MemoryMetrics) AddCounter(name string, value float64, labels map[string]string) error {
	key := buildKey(name, labels)
	m.mu.Lock()
	m.counters[key] += value
	m.mu.Unlock()
	return nil
}

// GetCounter 获取计数器值
func (m *MemoryMetrics) GetCounter(name string, labels map[string]string) (float64, error) {
	key := buildKey(name, labels)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[key], nil
}

// SetGauge 设置 Gauge 值
func (m *MemoryMetrics) SetGauge(name string, value float64, labels map[string]string) error {
	key := buildKey(name, labels)
	m.mu.Lock()
	m.gauges[key] = value
	m.mu.Unlock()
	return nil
}

// AddGauge Gauge 增减
func (m *MemoryMetrics) AddGauge(name string, delta float64, labels map[string]string) error {
	key := buildKey(name, labels)
	m.mu.Lock()
	m.gauges[key] += delta
	m.mu.Unlock()
	return nil
}

// GetGauge 获取 Gauge 值
func (m *MemoryMetrics) GetGauge(name string, labels map[string]string) (float64, error) {
	key := buildKey(name, labels)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[key], nil
}

// Snapshot 复制当前所有指标
func (m *MemoryMetrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		Counters: make(map[string]float64, len(m.counters)),
		Gauges:   make(map[string]float64, len(m.gauges)),
	}
	for k, v := range m.counters {
		s.Counters[k] = v
	}
	for k, v := range m.gauges {
		s.Gauges[k] = v
	}
	return s
}

func (m *MemoryMetrics) Close() error {
	return nil
}

// buildKey 构建指标键名，标签按键名排序：name{a=1,b=2}
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(labels[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

// NopMetrics 丢弃所有指标
type NopMetrics struct{}

func (NopMetrics) IncrementCounter(string, map[string]string) error          { return nil }
func (NopMetrics) AddCounter(string, float64, map[string]string) error       { return nil }
func (NopMetrics) GetCounter(string, map[string]string) (float64, error)     { return 0, nil }
func (NopMetrics) SetGauge(string, float64, map[string]string) error         { return nil }
func (NopMetrics) AddGauge(string, float64, map[string]string) error         { return nil }
func (NopMetrics) GetGauge(string, map[string]string) (float64, error)       { return 0, nil }
func (NopMetrics) Snapshot() Snapshot                                        { return Snapshot{} }
func (NopMetrics) Close() error                                              { return nil }
