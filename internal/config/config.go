package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Receiver ReceiverConfig `mapstructure:"receiver"`
	Emitter  EmitterConfig  `mapstructure:"emitter"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Spool    SpoolConfig    `mapstructure:"spool"`
	Store    StoreConfig    `mapstructure:"store"`
	Intake   IntakeConfig   `mapstructure:"intake"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReceiverConfig configures how the receiver obtains and post-processes
// the crash stream.
type ReceiverConfig struct {
	// SocketPath, when set, makes the receiver listen on a unix socket
	// instead of reading stdin. A stale socket file is removed first.
	SocketPath string `mapstructure:"socket_path"`

	// ResolveFrames selects where symbol resolution happens:
	// disabled, inprocess, or receiver.
	ResolveFrames string `mapstructure:"resolve_frames"`

	// ResolveTimeout bounds one resolver subprocess invocation.
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`

	// AdditionalFiles are read from disk by the receiver and attached
	// to every report (best-effort).
	AdditionalFiles []string `mapstructure:"additional_files"`

	// EnrichHostInfo controls best-effort host/process enrichment of
	// finalized reports.
	EnrichHostInfo bool `mapstructure:"enrich_host_info"`
}

// EmitterConfig configures the crash-side emitter.
type EmitterConfig struct {
	// CollectStacktrace enables the stack-trace block. Collecting a
	// trace inside a signal handler carries risk, so it can be turned
	// off entirely.
	CollectStacktrace bool `mapstructure:"collect_stacktrace"`

	// MaxFrames caps how many frames are captured.
	MaxFrames int `mapstructure:"max_frames"`
}

// UploadConfig configures report delivery.
type UploadConfig struct {
	// Endpoint receives the finished report. http(s):// endpoints are
	// POSTed to; file:// endpoints are written atomically.
	Endpoint string `mapstructure:"endpoint"`

	// APIKey is sent in the X-Crashtrack-Api-Key header. Never logged.
	APIKey string `mapstructure:"api_key"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// SpoolConfig configures the failed-upload spool.
type SpoolConfig struct {
	Dir string `mapstructure:"dir"`

	// SweepInterval is the fallback scan period when filesystem events
	// are missed.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// StoreConfig configures the local crash archive.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// IntakeConfig configures the development intake server.
type IntakeConfig struct {
	Addr string `mapstructure:"addr"`
	Dir  string `mapstructure:"dir"`
}
