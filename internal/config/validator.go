package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateReceiver(&cfg.Receiver)
	v.validateEmitter(&cfg.Emitter)
	v.validateUpload(&cfg.Upload)
	v.validateSpool(&cfg.Spool)
	v.validateIntake(&cfg.Intake)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateReceiver(cfg *ReceiverConfig) {
	switch cfg.ResolveFrames {
	case "disabled", "inprocess", "receiver":
	default:
		v.addError("receiver.resolve_frames", cfg.ResolveFrames,
			"must be one of: disabled, inprocess, receiver")
	}
	if cfg.ResolveTimeout < 0 {
		v.addError("receiver.resolve_timeout", cfg.ResolveTimeout, "must not be negative")
	}
}

func (v *Validator) validateEmitter(cfg *EmitterConfig) {
	if cfg.MaxFrames <= 0 {
		v.addError("emitter.max_frames", cfg.MaxFrames, "must be positive")
	}
}

func (v *Validator) validateUpload(cfg *UploadConfig) {
	if cfg.Endpoint == "" {
		v.addError("upload.endpoint", cfg.Endpoint, "must not be empty")
		return
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		v.addError("upload.endpoint", cfg.Endpoint, "must be a valid URL")
		return
	}
	switch u.Scheme {
	case "http", "https", "file":
	default:
		v.addError("upload.endpoint", cfg.Endpoint, "scheme must be http, https or file")
	}
	if cfg.Timeout < 0 {
		v.addError("upload.timeout", cfg.Timeout, "must not be negative")
	}
}

func (v *Validator) validateSpool(cfg *SpoolConfig) {
	if cfg.SweepInterval < 0 {
		v.addError("spool.sweep_interval", cfg.SweepInterval, "must not be negative")
	}
}

func (v *Validator) validateIntake(cfg *IntakeConfig) {
	if cfg.Addr == "" {
		v.addError("intake.addr", cfg.Addr, "must not be empty")
	}
}
