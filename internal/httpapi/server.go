// Package httpapi exposes the inference services over HTTP. One Server
// holds the shared model handles; Handler builds the route set for a single
// service.
package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/civic-sense/inference-services/internal/apperr"
	"github.com/civic-sense/inference-services/internal/caption"
	"github.com/civic-sense/inference-services/internal/inference"
	"github.com/civic-sense/inference-services/internal/media"
	"github.com/civic-sense/inference-services/internal/s3util"
)

// Service names one deployable API.
type Service string

const (
	ServiceComplaint     Service = "complaint-api"
	ServiceCaption       Service = "caption-api"
	ServiceVideoAnalysis Service = "video-analysis-api"
	ServiceFakeDetection Service = "fake-detection-api"
)

// Options configure a Server.
type Options struct {
	Models  inference.Models
	Sampler *media.Sampler
	// Random picks complaint templates; nil uses caption.DefaultRandom.
	Random caption.RandomSource
	// S3 resolves s3_key uploads on the video endpoints. Optional.
	S3 *s3util.Source

	MaxUploadBytes int64

	// RateLimit is requests per second across all routes; zero disables it.
	RateLimit float64
	RateBurst int
}

// Server handles requests for the inference services. It is safe for
// concurrent use; nothing in it changes after NewServer returns.
type Server struct {
	models    inference.Models
	sampler   *media.Sampler
	random    caption.RandomSource
	s3        *s3util.Source
	maxUpload int64
	limiter   *rate.Limiter
}

// NewServer returns a Server for opts.
func NewServer(opts Options) *Server {
	s := &Server{
		models:    opts.Models,
		sampler:   opts.Sampler,
		random:    opts.Random,
		s3:        opts.S3,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.random == nil {
		s.random = caption.DefaultRandom{}
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// Handler returns the routes for svc wrapped in the middleware chain. It
// fails when a model handle the service needs is missing.
func (s *Server) Handler(svc Service) (http.Handler, error) {
	mux := http.NewServeMux()
	routes := map[string]bool{"/health": true}
	handle := func(path string, h http.HandlerFunc) {
		routes[path] = true
		mux.HandleFunc(path, h)
	}

	switch svc {
	case ServiceComplaint:
		if s.models.Classifier == nil {
			return nil, errors.New("complaint service requires a classifier")
		}
		handle("/predict", s.handlePredict)
	case ServiceCaption:
		if s.models.Captioner == nil {
			return nil, errors.New("caption service requires a captioner")
		}
		handle("/caption", s.handleCaption)
	case ServiceVideoAnalysis:
		if s.models.Captioner == nil || s.sampler == nil {
			return nil, errors.New("video analysis service requires a captioner and a frame sampler")
		}
		handle("/analyze_video", s.handleAnalyzeVideo)
	case ServiceFakeDetection:
		if s.models.Detector == nil || s.sampler == nil {
			return nil, errors.New("fake detection service requires a detector and a frame sampler")
		}
		handle("/detect_fake_image", s.handleDetectFakeImage)
		handle("/detect_fake_video", s.handleDetectFakeVideo)
	default:
		return nil, fmt.Errorf("unknown service %q", svc)
	}
	mux.HandleFunc("/health", s.handleHealth(svc))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "Not found")
	})

	var h http.Handler = mux
	h = withRecover(h)
	h = withRateLimit(s.limiter, h)
	h = withMetrics(routes, h)
	h = withLogging(h)
	h = withCompression(h)
	return h, nil
}

func (s *Server) handleHealth(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, r, errMethodNotAllowed)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": string(svc)})
	}
}

var errMethodNotAllowed = apperr.New(apperr.MethodNotAllowed, "httpapi", "Method not allowed")

// requirePost writes a 405 and returns false for anything but POST.
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, errMethodNotAllowed)
		return false
	}
	return true
}
