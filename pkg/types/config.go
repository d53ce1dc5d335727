package types

import "errors"

// Config holds backend selection and server parameters.
type Config struct {
	Backend    string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir    string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Addr       string `json:"addr" yaml:"addr" mapstructure:"addr"`
	IDStrategy string `json:"id_strategy" yaml:"id_strategy" mapstructure:"id_strategy"`
	RedisAddr  string `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
}

// Supported backend names.
const (
	BackendJSON   = "json"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Id assignment strategies.
//
// IDStrategyLast derives the next id from the last record in the collection
// (last id + 1, or 1 when empty). Deleting the highest record and adding
// again reuses its id.
//
// IDStrategyMax keeps a counter seeded from the highest id seen, so ids are
// never reused while the process runs.
const (
	IDStrategyLast = "last"
	IDStrategyMax  = "max"
)

// Defaults applied when a key is absent from every configuration source.
const (
	DefaultBackend    = BackendJSON
	DefaultAddr       = ":8080"
	DefaultIDStrategy = IDStrategyLast
	DefaultRedisAddr  = "localhost:6379"
)

// Config validation errors.
var (
	ErrBackendEmpty      = errors.New("backend must not be empty")
	ErrBackendUnknown    = errors.New("unknown backend")
	ErrIDStrategyUnknown = errors.New("unknown id strategy")
	ErrAddrEmpty         = errors.New("listen address must not be empty")
	ErrRedisAddrEmpty    = errors.New("redis address must not be empty")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendJSON:   true,
	BackendJSONL:  true,
	BackendSQLite: true,
	BackendRedis:  true,
}

// Validate checks that the Config is well-formed. An empty IDStrategy is
// treated as IDStrategyLast. Addr is not checked here because commands that
// never listen (init, list) leave it unset; see ValidateServe.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.IDStrategy {
	case "", IDStrategyLast, IDStrategyMax:
	default:
		return ErrIDStrategyUnknown
	}
	if c.Backend == BackendRedis && c.RedisAddr == "" {
		return ErrRedisAddrEmpty
	}
	return nil
}

// ValidateServe runs Validate and additionally requires a listen address.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Addr == "" {
		return ErrAddrEmpty
	}
	return nil
}
