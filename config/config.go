package config

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	EnvVarPrefix      = "WZIP"
	DefaultConfigFile = "wzip.toml"

	DefaultLevel           = -1
	DefaultFormat          = "gzip"
	DefaultBlockSize       = 32 * 1024
	DefaultSuffix          = ".gz"
	DefaultListen          = ":8080"
	DefaultMaxBodyBytes    = 64 << 20
	DefaultReadTimeout     = duration(30 * time.Second)
	DefaultWriteTimeout    = duration(60 * time.Second)
	DefaultShutdownTimeout = duration(10 * time.Second)
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"

	MinLevel        = -1
	MaxLevel        = 9
	MinBlockSize    = 1024
	MaxBlockSize    = 32 * 1024
	MinMaxBodyBytes = 1
	MaxMaxBodyBytes = 1 << 32
	MinTimeout      = duration(1 * time.Millisecond)
	MaxTimeout      = duration(1 * time.Hour)
)

var (
	// VERSION gets set during build
	VERSION = "0.0.0"

	validFormats = map[string]struct{}{
		"gzip":    {},
		"zlib":    {},
		"deflate": {},
	}

	validLogFormats = map[string]struct{}{
		"text": {},
		"json": {},
	}
)

type Config struct {
	CLI  *CLI
	TOML *TOML
}

type TOML struct {
	Compress *TOMLCompress `toml:"compress"`
	Server   *TOMLServer   `toml:"server"`
	Log      *TOMLLog      `toml:"log"`
}

type TOMLCompress struct {
	Level     *int   `toml:"level"`
	Format    string `toml:"format"`
	BlockSize int    `toml:"block_size"`
}

type TOMLServer struct {
	Listen          string   `toml:"listen"`
	MaxBodyBytes    int64    `toml:"max_body_bytes"`
	ReadTimeout     duration `toml:"read_timeout"`
	WriteTimeout    duration `toml:"write_timeout"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

type TOMLLog struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type CLI struct {
	Compress   bool     `kong:"help='Force compression',short='c',xor='mode'"`
	Decompress bool     `kong:"help='Force decompression',short='d',xor='mode'"`
	Input      string   `kong:"help='Input file (default: stdin)',short='i'"`
	Output     string   `kong:"help='Output file (default: stdout)',short='o'"`
	Level      int      `kong:"help='Compression level 0-9; -1 uses the configured level',short='l',default='-1'"`
	Format     string   `kong:"help='Container format: gzip, zlib or deflate',short='f'"`
	Files      []string `arg:"" optional:"" help:"Files to compress or decompress in place"`
	Suffix     string   `kong:"help='Suffix of compressed files',short='S',default='.gz'"`
	Delete     bool     `kong:"help='Delete input files after processing them'"`
	Progress   bool     `kong:"help='Show a progress bar per file',short='p'"`
	Listen     string   `kong:"help='Serve HTTP on this address instead of processing input'"`
	ConfigFile string   `kong:"help='Path to the TOML config file',default='wzip.toml'"`
	NoColor    bool     `kong:"help='Disable color output'"`

	Debug   bool             `kong:"help='Enable debug output',short='D'"`
	Quiet   bool             `kong:"help='Disable the summary output',short='q'"`
	Version kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`
}

func NewConfig(args []string, options ...kong.Option) (*Config, error) {
	// Attempt to load .env
	_ = godotenv.Load(".env")

	cli, err := readCLIArgs(args, options...)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}

	tomlConfig, err := readTOML(cli.ConfigFile, cli.ConfigFile != DefaultConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	cfg := &Config{
		CLI:  cli,
		TOML: tomlConfig,
	}

	applyCLIOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyCLIOverrides lets flags win over the config file.
func applyCLIOverrides(c *Config) {
	if c.CLI.Level != DefaultLevel {
		level := c.CLI.Level
		c.TOML.Compress.Level = &level
	}

	if c.CLI.Format != "" {
		c.TOML.Compress.Format = c.CLI.Format
	}

	if c.CLI.Listen != "" {
		c.TOML.Server.Listen = c.CLI.Listen
	}

	if c.CLI.Debug {
		c.TOML.Log.Level = "debug"
	}
}

func setTOMLDefaults(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if t.Compress == nil {
		t.Compress = &TOMLCompress{}
	}

	if t.Server == nil {
		t.Server = &TOMLServer{}
	}

	if t.Log == nil {
		t.Log = &TOMLLog{}
	}

	// Set defaults for [compress]
	if t.Compress.Level == nil {
		level := DefaultLevel
		t.Compress.Level = &level
	}

	if t.Compress.Format == "" {
		t.Compress.Format = DefaultFormat
	}

	if t.Compress.BlockSize == 0 {
		t.Compress.BlockSize = DefaultBlockSize
	}

	// Set defaults for [server]
	if t.Server.Listen == "" {
		t.Server.Listen = DefaultListen
	}

	if t.Server.MaxBodyBytes == 0 {
		t.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if t.Server.ReadTimeout == 0 {
		t.Server.ReadTimeout = DefaultReadTimeout
	}

	if t.Server.WriteTimeout == 0 {
		t.Server.WriteTimeout = DefaultWriteTimeout
	}

	if t.Server.ShutdownTimeout == 0 {
		t.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Set defaults for [log]
	if t.Log.Level == "" {
		t.Log.Level = DefaultLogLevel
	}

	if t.Log.Format == "" {
		t.Log.Format = DefaultLogFormat
	}

	return nil
}

func Validate(c *Config) error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	if err := validateCLIArgs(c.CLI); err != nil {
		return errors.Wrap(err, "error validating CLI args")
	}

	if err := validateTOML(c.TOML); err != nil {
		return errors.Wrap(err, "error validating TOML config")
	}

	return nil
}

func validateTOML(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if err := validateTOMLCompress(t.Compress); err != nil {
		return errors.Wrap(err, "compress error(s)")
	}

	if err := validateTOMLServer(t.Server); err != nil {
		return errors.Wrap(err, "server error(s)")
	}

	if err := validateTOMLLog(t.Log); err != nil {
		return errors.Wrap(err, "log error(s)")
	}

	return nil
}

func validateTOMLCompress(c *TOMLCompress) error {
	if c == nil {
		return errors.New("compress cannot be empty")
	}

	if c.Level == nil || *c.Level < MinLevel || *c.Level > MaxLevel {
		return errors.Errorf("compress.level must be between %d and %d", MinLevel, MaxLevel)
	}

	if _, ok := validFormats[c.Format]; !ok {
		return errors.Errorf("compress.format %s is invalid", c.Format)
	}

	if c.BlockSize < MinBlockSize || c.BlockSize > MaxBlockSize {
		return errors.Errorf("compress.block_size must be between %d and %d", MinBlockSize, MaxBlockSize)
	}

	return nil
}

func validateTOMLServer(s *TOMLServer) error {
	if s == nil {
		return errors.New("server cannot be empty")
	}

	if s.Listen == "" {
		return errors.New("server.listen cannot be empty")
	}

	if s.MaxBodyBytes < MinMaxBodyBytes || s.MaxBodyBytes > MaxMaxBodyBytes {
		return errors.Errorf("server.max_body_bytes must be between %d and %d", MinMaxBodyBytes, int64(MaxMaxBodyBytes))
	}

	for name, d := range map[string]duration{
		"read_timeout":     s.ReadTimeout,
		"write_timeout":    s.WriteTimeout,
		"shutdown_timeout": s.ShutdownTimeout,
	} {
		if d < MinTimeout || d > MaxTimeout {
			return errors.Errorf("server.%s must be between %s and %s", name, MinTimeout, MaxTimeout)
		}
	}

	return nil
}

func validateTOMLLog(l *TOMLLog) error {
	if l == nil {
		return errors.New("log cannot be empty")
	}

	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return errors.Errorf("log.level %s is invalid", l.Level)
	}

	if _, ok := validLogFormats[l.Format]; !ok {
		return errors.Errorf("log.format %s is invalid", l.Format)
	}

	return nil
}

func readCLIArgs(args []string, options ...kong.Option) (*CLI, error) {
	cli := &CLI{}

	parser, err := kong.New(cli, append([]kong.Option{
		kong.Name("wzip"),
		kong.Description("DEFLATE compressor for gzip, zlib and raw deflate streams"),
		kong.UsageOnError(),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": VERSION,
		},
	}, options...)...)
	if err != nil {
		return nil, errors.Wrap(err, "error building CLI parser")
	}

	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}

	if err := validateCLIArgs(cli); err != nil {
		return nil, errors.Wrap(err, "error validating args")
	}

	return cli, nil
}

// readTOML loads file. A missing file is only an error when it was asked for
// explicitly.
func readTOML(file string, explicit bool) (*TOML, error) {
	tomlConfig := &TOML{}

	// Attempt to load file
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, tomlConfig); err != nil {
			return nil, errors.Wrap(err, "error parsing TOML config")
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrap(err, "error reading file")
	}

	// Set defaults
	if err := setTOMLDefaults(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error setting TOML defaults")
	}

	return tomlConfig, nil
}

func validateCLIArgs(cli *CLI) error {
	if cli == nil {
		return errors.New("config cannot be nil")
	}

	if cli.Level < MinLevel || cli.Level > MaxLevel {
		return errors.Errorf("--level must be between %d and %d", MinLevel, MaxLevel)
	}

	if cli.Format != "" {
		if _, ok := validFormats[cli.Format]; !ok {
			return errors.Errorf("--format %s is invalid", cli.Format)
		}
	}

	if len(cli.Files) > 0 && (cli.Input != "" || cli.Output != "") {
		return errors.New("--input and --output cannot be combined with files")
	}

	if cli.Listen != "" && (len(cli.Files) > 0 || cli.Input != "" || cli.Output != "") {
		return errors.New("--listen cannot be combined with input or output")
	}

	if cli.Delete && len(cli.Files) == 0 {
		return errors.New("--delete requires files")
	}

	if cli.Suffix == "" {
		return errors.New("--suffix cannot be empty")
	}

	return nil
}

type duration time.Duration

func (d duration) String() string {
	return time.Duration(d).String()
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(dur)
	return nil
}

func (d duration) Duration() time.Duration {
	return time.Duration(d)
}
