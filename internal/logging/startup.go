package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects how a service was configured and emits it as one
// structured event, so a single log line explains a running instance.
type StartupLogger struct {
	name         string
	port         int
	mode         string
	initDuration time.Duration

	models   map[string]string
	ssm      map[string]string
	buckets  map[string]string
	features map[string]bool
	config   map[string]string
}

// NewStartupLogger starts a summary for the named service.
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		models:   make(map[string]string),
		ssm:      make(map[string]string),
		buckets:  make(map[string]string),
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// Port records the listening port (0 in Lambda mode).
func (s *StartupLogger) Port(port int) *StartupLogger {
	s.port = port
	return s
}

// Mode records how the service is hosted ("http" or "lambda").
func (s *StartupLogger) Mode(mode string) *StartupLogger {
	s.mode = mode
	return s
}

// Model records a model role and the model serving it.
func (s *StartupLogger) Model(role, name string) *StartupLogger {
	s.models[role] = name
	return s
}

// SSMParam records an SSM parameter path. Only the path is logged.
func (s *StartupLogger) SSMParam(label, path string) *StartupLogger {
	s.ssm[label] = path
	return s
}

// S3Bucket records a bucket the service reads from.
func (s *StartupLogger) S3Bucket(label, name string) *StartupLogger {
	s.buckets[label] = name
	return s
}

// Feature records a boolean feature flag.
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config records a non-sensitive setting.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long startup took.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// Log emits the summary at info level.
func (s *StartupLogger) Log() {
	service := zerolog.Dict().
		Str("name", s.name).
		Str("mode", s.mode).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", zerolog.GlobalLevel().String())
	if s.port > 0 {
		service = service.Int("port", s.port)
	}
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		service = service.
			Str("functionName", fn).
			Str("version", os.Getenv("AWS_LAMBDA_FUNCTION_VERSION")).
			Str("region", os.Getenv("AWS_REGION")).
			Str("memoryMB", os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE"))
	}

	evt := log.Info().Dict("service", service)
	if len(s.models) > 0 {
		evt = evt.Dict("models", dictFromMap(s.models))
	}
	if len(s.ssm) > 0 || len(s.buckets) > 0 {
		res := zerolog.Dict()
		if len(s.ssm) > 0 {
			res = res.Dict("ssmParams", dictFromMap(s.ssm))
		}
		if len(s.buckets) > 0 {
			res = res.Dict("s3Buckets", dictFromMap(s.buckets))
		}
		evt = evt.Dict("resources", res)
	}
	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}
	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}
	evt.Msg("Service startup complete")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
