package schema

// Notification bus types
const (
	NotifyNone   = "none"
	NotifyMemory = "memory"
	NotifyRedis  = "redis"
)

// NotifyConfig contains lifecycle notification settings
type NotifyConfig struct {
	Type          string      `yaml:"type" json:"type"`
	ChannelPrefix string      `yaml:"channel_prefix" json:"channel_prefix"`
	BufferSize    int         `yaml:"buffer_size" json:"buffer_size"`
	Redis         RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password Secret `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}
