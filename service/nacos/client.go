package nacos

import (
	"sync"

	errs "FeedNotify/tools/errs"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
)

// Config locates one config document on a Nacos server.
type Config struct {
	Host      string
	Port      uint64
	Namespace string
	Username  string
	Password  string
	DataID    string
	Group     string
	TimeoutMs uint64
	CacheDir  string
	LogDir    string
	LogLevel  string
}

func (c Config) clientConfig() *constant.ClientConfig {
	timeout := c.TimeoutMs
	if timeout == 0 {
		timeout = 5000
	}
	level := c.LogLevel
	if level == "" {
		level = "warn"
	}
	opts := []constant.ClientOption{
		constant.WithNamespaceId(c.Namespace),
		constant.WithTimeoutMs(timeout),
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogLevel(level),
	}
	if c.CacheDir != "" {
		opts = append(opts, constant.WithCacheDir(c.CacheDir))
	}
	if c.LogDir != "" {
		opts = append(opts, constant.WithLogDir(c.LogDir))
	}
	if c.Username != "" {
		opts = append(opts, constant.WithUsername(c.Username), constant.WithPassword(c.Password))
	}
	return constant.NewClientConfig(opts...)
}

func (c Config) param() vo.ConfigParam {
	group := c.Group
	if group == "" {
		group = "DEFAULT_GROUP"
	}
	return vo.ConfigParam{DataId: c.DataID, Group: group}
}

// Source reads and watches one config document.
type Source struct {
	cfg    Config
	client config_client.IConfigClient

	mu      sync.RWMutex
	current string
}

func NewSource(cfg Config) (*Source, error) {
	if cfg.Host == "" || cfg.DataID == "" {
		return nil, errs.ErrValidation.WrapMsg("nacos needs host and data id")
	}
	port := cfg.Port
	if port == 0 {
		port = 8848
	}
	client, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  cfg.clientConfig(),
		ServerConfigs: []constant.ServerConfig{*constant.NewServerConfig(cfg.Host, port)},
	})
	if err != nil {
		return nil, errs.ErrInternal.WrapErr(err, "create nacos config client")
	}
	return newSource(cfg, client), nil
}

func newSource(cfg Config, client config_client.IConfigClient) *Source {
	return &Source{cfg: cfg, client: client}
}

// Fetch returns the current document content.
func (s *Source) Fetch() (string, error) {
	content, err := s.client.GetConfig(s.cfg.param())
	if err != nil {
		return "", errs.ErrInternal.WrapErr(err, "get nacos config", "dataId", s.cfg.DataID)
	}
	s.set(content)
	return content, nil
}

// Watch calls onChange with every new version of the document.
func (s *Source) Watch(onChange func(content string)) error {
	p := s.cfg.param()
	p.OnChange = func(_, _, _, data string) {
		s.set(data)
		if onChange != nil {
			onChange(data)
		}
	}
	if err := s.client.ListenConfig(p); err != nil {
		return errs.ErrInternal.WrapErr(err, "listen nacos config", "dataId", s.cfg.DataID)
	}
	return nil
}

func (s *Source) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Source) Close() {
	_ = s.client.CancelListenConfig(s.cfg.param())
	s.client.CloseClient()
}

func (s *Source) set(content string) {
	s.mu.Lock()
	s.current = content
	s.mu.Unlock()
}
