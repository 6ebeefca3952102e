package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile はデフォルトの設定ファイル名
	DefaultConfigFile = "config.toml"
	// DefaultURL は transport.url が空でサーバーも無効なときの接続先
	DefaultURL = "ws://localhost:8080/ws"
)

// Config はアプリケーション全体の設定を表す
type Config struct {
	Debug bool `toml:"debug" yaml:"debug"`
	Log   struct {
		Filename string `toml:"filename" yaml:"filename"`
	} `toml:"log" yaml:"log"`
	Device struct {
		ID           uint32 `toml:"id" yaml:"id"`
		RefreshDelay string `toml:"refresh_delay" yaml:"refresh_delay"` // e.g., "200ms", "0" to disable
	} `toml:"device" yaml:"device"`
	Transport struct {
		URL            string `toml:"url" yaml:"url"`
		CallTimeout    string `toml:"call_timeout" yaml:"call_timeout"`
		ConnectRetries int    `toml:"connect_retries" yaml:"connect_retries"`
	} `toml:"transport" yaml:"transport"`
	Server struct {
		Enabled bool   `toml:"enabled" yaml:"enabled"`
		Host    string `toml:"host" yaml:"host"`
		Port    int    `toml:"port" yaml:"port"`
	} `toml:"server" yaml:"server"`
	Simulator struct {
		Enabled          bool     `toml:"enabled" yaml:"enabled"`
		UnsupportedModes []string `toml:"unsupported_modes" yaml:"unsupported_modes"`
	} `toml:"simulator" yaml:"simulator"`
}

// NewConfig はデフォルト設定を持つConfigを作成する
func NewConfig() *Config {
	cfg := &Config{
		Debug: false,
	}
	cfg.Log.Filename = "mi-api.log"
	cfg.Device.RefreshDelay = "200ms"
	cfg.Transport.CallTimeout = "10s"
	cfg.Transport.ConnectRetries = 3
	cfg.Server.Enabled = false
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080
	return cfg
}

// LoadConfig は設定を読み込む
// 以下の優先順位でロードする:
// 1. 指定されたパスの設定ファイル（指定がある場合）
// 2. カレントディレクトリのデフォルト設定ファイル（存在する場合）
// 3. デフォルト設定
//
// 拡張子が .yaml / .yml のファイルは YAML として、それ以外は TOML として読み込む。
func LoadConfig(configPath string) (*Config, error) {
	config := NewConfig()

	filePath := configPath
	if filePath == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			filePath = DefaultConfigFile
		} else {
			return config, nil
		}
	}

	var err error
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		err = decodeYAML(filePath, config)
	default:
		err = decodeTOML(filePath, config)
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filePath, err)
	}

	return config, nil
}

func decodeTOML(filePath string, config *Config) error {
	md, err := toml.DecodeFile(filePath, config)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", filePath, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", filePath, strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(filePath string, config *Config) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", filePath, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // 未知のキーはエラー
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error loading %s: %w", filePath, err)
	}
	return nil
}

// Validate は値の形式を検査する
func (c *Config) Validate() error {
	if _, err := c.RefreshDelay(); err != nil {
		return err
	}
	if _, err := c.CallTimeout(); err != nil {
		return err
	}
	if c.Transport.ConnectRetries < 0 {
		return fmt.Errorf("transport.connect_retries must not be negative: %d", c.Transport.ConnectRetries)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative: %s", key, s)
	}
	return d, nil
}

// RefreshDelay は書き込み後の再取得までの待ち時間。0 なら再取得しない
func (c *Config) RefreshDelay() (time.Duration, error) {
	return parseDuration("device.refresh_delay", c.Device.RefreshDelay)
}

// CallTimeout は1回の呼び出しのタイムアウト。0 なら既定値
func (c *Config) CallTimeout() (time.Duration, error) {
	return parseDuration("transport.call_timeout", c.Transport.CallTimeout)
}

// ServerAddr は RPC サーバーの待ち受けアドレス
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ConnectURL は接続先の URL を返す。
// transport.url が空なら、サーバーが有効なときはその待ち受けアドレス、そうでなければ DefaultURL を使う
func (c *Config) ConnectURL() string {
	if c.Transport.URL != "" {
		return c.Transport.URL
	}
	if !c.Server.Enabled {
		return DefaultURL
	}
	host := c.Server.Host
	// 全インターフェースで待ち受けているときはループバックに接続する
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("ws://%s/ws", net.JoinHostPort(host, strconv.Itoa(c.Server.Port)))
}

// ApplyCommandLineArgs はコマンドライン引数で指定された値を設定に適用する
func (c *Config) ApplyCommandLineArgs(args CommandLineArgs) {
	if args.DebugSpecified {
		c.Debug = args.Debug
	}
	if args.LogFilenameSpecified {
		c.Log.Filename = args.LogFilename
	}
	// device
	if args.DeviceIDSpecified {
		c.Device.ID = args.DeviceID
	}
	if args.RefreshDelaySpecified {
		c.Device.RefreshDelay = args.RefreshDelay
	}
	// transport
	if args.URLSpecified {
		c.Transport.URL = args.URL
	}
	// server
	if args.ServerEnabledSpecified {
		c.Server.Enabled = args.ServerEnabled
	}
	if args.ServerHostSpecified {
		c.Server.Host = args.ServerHost
	}
	if args.ServerPortSpecified {
		c.Server.Port = args.ServerPort
	}
	// simulator
	if args.SimulatorSpecified {
		c.Simulator.Enabled = args.Simulator
	}
}

// CommandLineArgs はコマンドライン引数からの値を保持する
type CommandLineArgs struct {
	// 設定ファイル (メタ設定)
	ConfigFile      string
	ConfigSpecified bool

	// 一般設定
	Debug          bool
	DebugSpecified bool

	// ログ設定
	LogFilename          string
	LogFilenameSpecified bool

	// デバイス設定
	DeviceID              uint32
	DeviceIDSpecified     bool
	RefreshDelay          string
	RefreshDelaySpecified bool

	// トランスポート設定
	URL          string
	URLSpecified bool

	// RPCサーバー設定
	ServerEnabled          bool
	ServerEnabledSpecified bool
	ServerHost             string
	ServerHostSpecified    bool
	ServerPort             int
	ServerPortSpecified    bool

	// シミュレーター
	Simulator          bool
	SimulatorSpecified bool
}

// ParseCommandLineArgs は os.Args をパースする
func ParseCommandLineArgs() (CommandLineArgs, error) {
	return ParseArgs(os.Args[0], os.Args[1:])
}

// ParseArgs はコマンドライン引数をパースする
func ParseArgs(name string, arguments []string) (CommandLineArgs, error) {
	var args CommandLineArgs
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&args.ConfigFile, "config", "", "TOML設定ファイルのパスを指定する")

	fs.BoolVar(&args.Debug, "debug", false, "デバッグモードを有効にする")
	fs.StringVar(&args.LogFilename, "log", "mi-api.log", "ログファイル名を指定する")

	var deviceID uint
	fs.UintVar(&deviceID, "device-id", 0, "デバイスIDを指定する")
	fs.StringVar(&args.RefreshDelay, "refresh-delay", "200ms", "書き込み後にプロパティを再取得するまでの待ち時間 (0で無効)")

	fs.StringVar(&args.URL, "url", "", "接続先のRPCサーバーのアドレスを指定する (省略時は -server のアドレスまたは "+DefaultURL+")")

	fs.BoolVar(&args.ServerEnabled, "server", false, "RPCサーバーを有効にする")
	fs.StringVar(&args.ServerHost, "server-host", "localhost", "RPCサーバーのホスト名を指定する")
	fs.IntVar(&args.ServerPort, "server-port", 8080, "RPCサーバーのポートを指定する")

	fs.BoolVar(&args.Simulator, "simulator", false, "実機の代わりにシミュレーターを使う")

	if err := fs.Parse(arguments); err != nil {
		return args, err
	}
	if deviceID > 0xFFFFFFFF {
		return args, fmt.Errorf("device-id out of range: %d", deviceID)
	}
	args.DeviceID = uint32(deviceID)

	// 指定されたフラグだけを設定ファイルの値より優先する
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config":
			args.ConfigSpecified = true
		case "debug":
			args.DebugSpecified = true
		case "log":
			args.LogFilenameSpecified = true
		case "device-id":
			args.DeviceIDSpecified = true
		case "refresh-delay":
			args.RefreshDelaySpecified = true
		case "url":
			args.URLSpecified = true
		case "server":
			args.ServerEnabledSpecified = true
		case "server-host":
			args.ServerHostSpecified = true
		case "server-port":
			args.ServerPortSpecified = true
		case "simulator":
			args.SimulatorSpecified = true
		}
	})

	return args, nil
}
