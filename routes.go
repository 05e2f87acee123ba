package main

import (
	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Text formats
	router.HandleFunc("/parse", parseHandler("text", decodeText, false)).Methods("POST")
	router.HandleFunc("/parse/legacy", parseHandler("text", decodeText, true)).Methods("POST")

	// Binary sources
	router.HandleFunc("/parse/sylt", parseHandler("sylt", decodeSYLT, false)).Methods("POST")
	router.HandleFunc("/parse/midi", parseHandler("midi", decodeMIDI, false)).Methods("POST")

	// Files next to a media file
	router.HandleFunc("/parse/sidecar", getSidecarLyrics).Methods("GET")

	// Cache management endpoints
	router.HandleFunc("/cache", getCacheDump).Methods("GET")
	router.HandleFunc("/cache/backup", backupCache).Methods("POST")
	router.HandleFunc("/cache/clear", clearCache).Methods("POST")

	// Health and stats endpoints
	router.HandleFunc("/health", getHealthStatus).Methods("GET")
	router.HandleFunc("/stats", getStats).Methods("GET")

	// Help endpoint
	router.HandleFunc("/", helpHandler)
}
