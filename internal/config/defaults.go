package config

// DefaultConfigYAML contains the default configuration YAML content.
// Used by `crashtrack init` so the generated file documents every knob.
const DefaultConfigYAML = `# CrashTrack Configuration
#
# Values not specified here use sensible defaults.

log:
  # debug, info, warn, error
  level: info
  # auto (pretty on a TTY, JSON otherwise), text, json
  format: auto

receiver:
  # When set, the receiver listens on this unix socket instead of stdin.
  # A stale socket file at this path is removed first.
  socket_path: ""
  # Where stack frames are resolved to symbol names:
  #   disabled  - addresses only
  #   inprocess - resolved by the crashing process (riskier, timelier)
  #   receiver  - resolved here using the crashed process's PID
  resolve_frames: receiver
  # Bound on one resolver subprocess invocation.
  resolve_timeout: 10s
  # Files the receiver reads from disk and attaches to every report.
  additional_files: []
  # Attach best-effort host/process details to finalized reports.
  enrich_host_info: true

emitter:
  # Collecting a stack trace inside a signal handler carries risk;
  # disable to keep only the safe blocks.
  collect_stacktrace: true
  max_frames: 64

upload:
  # http(s):// endpoints are POSTed to; file:// endpoints are written
  # atomically as JSON.
  endpoint: "file://./crashtrack-reports"
  # Sent as CrashTrack-Api-Key. Prefer CRASHTRACK_UPLOAD_API_KEY.
  api_key: ""
  timeout: 30s

spool:
  # Failed uploads are parked here and retried by 'crashtrack watch'.
  dir: ".crashtrack/spool"
  sweep_interval: 1m

store:
  # Local sqlite archive of every received report.
  path: ".crashtrack/crashes.db"

intake:
  # Development intake server ('crashtrack intake').
  addr: "127.0.0.1:8095"
  dir: ".crashtrack/intake"
`
