package main

import (
	"os"

	"github.com/civic-sense/inference-services/internal/config"
	"github.com/civic-sense/inference-services/internal/httpapi"
	"github.com/civic-sense/inference-services/internal/serve"
)

func main() {
	cmd := serve.Command(serve.Binary{
		Service:     httpapi.ServiceComplaint,
		DefaultPort: config.PortComplaint,
		Short:       "Classify complaint text into a department and priority",
		Long: `complaint-api serves POST /predict. The body is {"text": "..."}; the
response names the responsible department, the corrected priority and the
classifier confidence as a percentage.

Examples:
  complaint-api
  complaint-api --port 8080 --provider openai`,
	})
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
