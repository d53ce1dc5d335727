package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/cabinet/internal/paths"
	"github.com/mesh-intelligence/cabinet/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "CABINET"

	cfgKeyBackend    = "backend"
	cfgKeyDataDir    = "data_dir"
	cfgKeyAddr       = "addr"
	cfgKeyIDStrategy = "id_strategy"
	cfgKeyRedisAddr  = "redis_addr"
)

// flagForKey maps config keys to the command-line flag that overrides them.
var flagForKey = map[string]string{
	cfgKeyBackend:    "backend",
	cfgKeyDataDir:    "data-dir",
	cfgKeyAddr:       "addr",
	cfgKeyIDStrategy: "id-strategy",
	cfgKeyRedisAddr:  "redis-addr",
}

// loadConfig resolves the Config for cmd. Precedence per key is
// flag > CABINET_<KEY> env > config.yaml > default. A missing config.yaml
// is not an error. data_dir is returned as an absolute path.
func loadConfig(cmd *cobra.Command, configDir string) (types.Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.DefaultBackend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyAddr, types.DefaultAddr)
	v.SetDefault(cfgKeyIDStrategy, types.DefaultIDStrategy)
	v.SetDefault(cfgKeyRedisAddr, types.DefaultRedisAddr)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	for key, name := range flagForKey {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return types.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}

	dataDir, err := paths.ResolveDataDir(cfg.DataDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir,omitempty"`
	Addr       string `yaml:"addr"`
	IDStrategy string `yaml:"id_strategy"`
	RedisAddr  string `yaml:"redis_addr,omitempty"`
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. It reports whether a file was written.
func writeConfigIfMissing(path string, cfg types.Config) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	out := configFile{
		Backend:    cfg.Backend,
		DataDir:    cfg.DataDir,
		Addr:       cfg.Addr,
		IDStrategy: cfg.IDStrategy,
	}
	if cfg.Backend == types.BackendRedis {
		out.RedisAddr = cfg.RedisAddr
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# Cabinet configuration. Flags and CABINET_* environment variables override these values.\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}
