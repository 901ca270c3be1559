package main

import (
	"os"

	"github.com/civic-sense/inference-services/internal/config"
	"github.com/civic-sense/inference-services/internal/httpapi"
	"github.com/civic-sense/inference-services/internal/serve"
)

func main() {
	cmd := serve.Command(serve.Binary{
		Service:     httpapi.ServiceFakeDetection,
		DefaultPort: config.PortFakeDetection,
		Short:       "Flag machine-generated images and videos",
		Long: `fake-detection-api serves POST /detect_fake_image and
POST /detect_fake_video. Media counts as fake when an "artificial" or "fake"
label scores above 0.9. Add ?provenance=true to the image endpoint to include
EXIF capture metadata in the response.

Requires ffmpeg and ffprobe for the video endpoint.`,
	})
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
