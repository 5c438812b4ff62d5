package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/gorilla/handlers"

	"tfemu/internal/logger"
	"tfemu/pkg/tnc"
	"tfemu/pkg/transport"
)

// statusResponse is the /status JSON document
type statusResponse struct {
	Mode      string                  `json:"mode"`
	Channels  []tnc.ChannelStatus     `json:"channels"`
	Transport transport.StatsSnapshot `json:"transport"`
}

// startStatusServer serves channel and transport state over HTTP for
// operators who want to watch the emulator without a packet client.
func startStatusServer(addr string, controller *tnc.TNC, stats *transport.Stats, log logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Mode:      controller.Mode().String(),
			Channels:  controller.Snapshot(),
			Transport: stats.Snapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warn("Status encode failed: %v", err)
		}
	})

	go func() {
		log.Info("Status endpoint on http://%s/status", addr)
		if err := http.ListenAndServe(addr, handlers.LoggingHandler(os.Stdout, mux)); err != nil {
			log.Warn("Status server stopped: %v", err)
		}
	}()
}
