package main

import (
	"os"

	"github.com/civic-sense/inference-services/internal/config"
	"github.com/civic-sense/inference-services/internal/httpapi"
	"github.com/civic-sense/inference-services/internal/serve"
)

func main() {
	cmd := serve.Command(serve.Binary{
		Service:     httpapi.ServiceCaption,
		DefaultPort: config.PortCaption,
		Short:       "Turn a photo into a drafted complaint",
		Long: `caption-api serves POST /caption. Upload a multipart "image" field and
receive a complaint narrative built from the image caption.

Examples:
  caption-api
  MODEL_PROVIDER=http MODEL_SERVER_URL=http://localhost:8000 caption-api`,
	})
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
