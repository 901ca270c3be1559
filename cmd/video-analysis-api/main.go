package main

import (
	"os"

	"github.com/civic-sense/inference-services/internal/config"
	"github.com/civic-sense/inference-services/internal/httpapi"
	"github.com/civic-sense/inference-services/internal/serve"
)

func main() {
	cmd := serve.Command(serve.Binary{
		Service:     httpapi.ServiceVideoAnalysis,
		DefaultPort: config.PortVideoAnalysis,
		Short:       "Describe the incident shown in a video",
		Long: `video-analysis-api serves POST /analyze_video. Upload a multipart "video"
field (or an "s3_key" when MEDIA_BUCKET_NAME is set); the middle frame is
captioned and returned as an incident description.

Requires ffmpeg and ffprobe on PATH.`,
	})
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
