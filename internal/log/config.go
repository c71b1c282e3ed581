package log

type Config struct {
	// Name names the root logger, it shows up as the logger field on
	// every entry.
	Name string `conf:"name" yaml:"name" json:"name"`

	// Level is the minimum enabled logging level: debug, info, warn, error.
	Level string `conf:"level" yaml:"level" json:"level"`

	// Format selects the encoder: json or console.
	Format string `conf:"format" yaml:"format" json:"format"`

	// Outputs lists the log sinks: stdout, stderr, or a file path.
	Outputs []string `conf:"outputs" yaml:"outputs" json:"outputs"`

	File FileConfig `conf:"file" yaml:"file" json:"file"`

	Debug bool `conf:"debug" yaml:"debug" json:"debug"`
}

// FileConfig controls rotation of file outputs, see lumberjack.
type FileConfig struct {
	MaxSize    int  `conf:"max_size" yaml:"max_size" json:"max_size"`
	MaxBackups int  `conf:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAge     int  `conf:"max_age" yaml:"max_age" json:"max_age"`
	Compress   bool `conf:"compress" yaml:"compress" json:"compress"`
}

func (c Config) withDefaults() Config {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = "json"
	}

	if len(c.Outputs) == 0 {
		c.Outputs = []string{"stderr"}
	}

	if c.File.MaxSize <= 0 {
		c.File.MaxSize = 100
	}

	if c.File.MaxBackups <= 0 {
		c.File.MaxBackups = 5
	}

	return c
}
