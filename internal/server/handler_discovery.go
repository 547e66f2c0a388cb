package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "GoFlux API",
		Version:     "v1",
		Description: "GoFlux job scheduling engine: multi-source job streams with per-signature ordering",
		Endpoints: []endpointInfo{
			{"/api/v1/sources", []string{"GET", "POST"}, "Register sources and snapshot live scheduling state"},
			{"/api/v1/sources/{id}", []string{"GET", "DELETE"}, "Single source status; DELETE closes its stream"},
			{"/api/v1/sources/{id}/jobs", []string{"POST"}, "Append a job item to the source's stream"},
			{"/api/v1/executions", []string{"GET"}, "Execution history with state and source filters"},
			{"/api/v1/executions/{id}", []string{"GET"}, "Single execution record"},
			{"/api/v1/sse/executions", []string{"GET"}, "Server-Sent Events feed of execution records"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
