package conf

import (
	"errors"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/looplj/forgehub/internal/bus"
	"github.com/looplj/forgehub/internal/gc"
	"github.com/looplj/forgehub/internal/log"
	"github.com/looplj/forgehub/internal/server"
	"github.com/looplj/forgehub/internal/server/biz"
	"github.com/looplj/forgehub/internal/storage"
)

// Config is the full forgehub configuration tree. Field names follow the
// conf tags so viper key lookups and struct decoding stay in sync.
type Config struct {
	fx.Out `yaml:"-" json:"-"`

	Server  server.Config  `conf:"server" yaml:"server" json:"server"`
	Log     log.Config     `conf:"log" yaml:"log" json:"log"`
	Storage storage.Config `conf:"storage" yaml:"storage" json:"storage"`
	Bus     bus.Config     `conf:"bus" yaml:"bus" json:"bus"`
	Repos   biz.Config     `conf:"repos" yaml:"repos" json:"repos"`
	GC      gc.Config      `conf:"gc" yaml:"gc" json:"gc"`
}

// Load reads configuration from forgehub.{yml,yaml,json} in the working
// directory, $HOME/.forgehub or /etc/forgehub, overlaid with FORGEHUB_*
// environment variables. A missing config file is not an error.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("forgehub")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.forgehub")
	v.AddConfigPath("/etc/forgehub")

	v.SetEnvPrefix("FORGEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var config Config

	err = v.Unmarshal(&config, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "conf"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "forgehub")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.trace.trace_header", "X-Forge-Trace-Id")
	v.SetDefault("server.trace.request_header", "X-Forge-Request-Id")

	v.SetDefault("log.name", "forgehub")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.outputs", []string{"stdout"})

	v.SetDefault("repos.git_url", "git.forgehub.dev")

	v.SetDefault("storage.mode", "memory")
	v.SetDefault("storage.dialect", "sqlite")

	v.SetDefault("bus.mode", "memory")
	v.SetDefault("bus.channel_prefix", "forgehub:events")

	v.SetDefault("gc.enabled", true)
	v.SetDefault("gc.cron", "0 * * * *")
	v.SetDefault("gc.retention", "720h")
	v.SetDefault("gc.batch_size", 200)
}
