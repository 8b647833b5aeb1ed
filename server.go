package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Server exposes the classification pipeline and the assistant over
// HTTP. Requests are stateless; the only shared value is the
// read-only equivalence catalog inside the classifier.
type Server struct {
	cfg        Config
	classifier *Classifier
	assistant  *ChatAssistant
	db         *sql.DB
	notifier   *Notifier
	mux        *http.ServeMux
}

func NewServer(cfg Config, classifier *Classifier, assistant *ChatAssistant, db *sql.DB, notifier *Notifier) *Server {
	s := &Server{
		cfg:        cfg,
		classifier: classifier,
		assistant:  assistant,
		db:         db,
		notifier:   notifier,
		mux:        http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/mpcdc", s.handleIndex)
	s.mux.HandleFunc("/mpcdc/chat", s.handleChat)
	s.mux.HandleFunc("/mpcdc/status", s.handleStatus)
	s.mux.HandleFunc("/mpcdc/classify_change", s.handleClassify)
	// Short alias for the classify operation.
	s.mux.HandleFunc("/classify", s.handleClassify)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/mpcdc", http.StatusFound)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    "MPCDC change risk classification",
		"use_mock":   s.assistant.DemoMode(),
		"map_loaded": s.classifier.Catalog != nil,
	})
}

type classifySuccessResponse struct {
	Status         string  `json:"status"`
	PredictedLabel string  `json:"predicted_label"`
	RawPrediction  float64 `json:"raw_prediction"`
}

type classifyErrorResponse struct {
	Status      string          `json:"status"`
	Message     string          `json:"message"`
	RawResponse json.RawMessage `json:"raw_response,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log.Printf("received classification request from %s", r.RemoteAddr)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, classifyErrorResponse{Status: "error", Message: "Could not read request body"})
		return
	}

	var record ChangeRecord
	if len(body) > 0 {
		if err := json.Unmarshal(body, &record); err != nil {
			writeJSON(w, http.StatusBadRequest, classifyErrorResponse{Status: "error", Message: "Request body is not a valid JSON object"})
			return
		}
	}

	result, err := s.classifier.Classify(r.Context(), record)
	s.recordOutcome(result, err)
	if err != nil {
		s.writeClassifyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, classifySuccessResponse{
		Status:         "success",
		PredictedLabel: result.PredictedLabel,
		RawPrediction:  result.RawPrediction,
	})
}

// writeClassifyError maps pipeline error kinds to HTTP statuses:
// empty input 400, configuration problems 500, upstream call failures
// 502, decode failures 500 (with the raw response attached).
func (s *Server) writeClassifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, classifyErrorResponse{Status: "error", Message: "No change data provided"})

	case errors.Is(err, ErrCatalogUnavailable):
		writeJSON(w, http.StatusInternalServerError, classifyErrorResponse{
			Status:  "error",
			Message: "Equivalence catalog is not loaded. Please check server logs.",
		})

	case errors.Is(err, ErrEndpointNotConfigured):
		writeJSON(w, http.StatusInternalServerError, classifyErrorResponse{
			Status:  "error",
			Message: "Regression endpoint URL is not configured on the server.",
		})

	default:
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			switch stageErr.Stage {
			case StageInvoke:
				s.notifier.Alert(fmt.Sprintf("Regression endpoint failure: %v", stageErr.Err))
				writeJSON(w, http.StatusBadGateway, classifyErrorResponse{
					Status:  "error",
					Message: "Failed to get response from the regression model endpoint.",
				})
				return
			case StageDecode:
				resp := classifyErrorResponse{
					Status:  "error",
					Message: "Could not parse prediction from model response.",
				}
				var decodeErr *DecodeError
				if errors.As(stageErr.Err, &decodeErr) {
					resp.RawResponse = decodeErr.RawResponse
				}
				writeJSON(w, http.StatusInternalServerError, resp)
				return
			}
		}
		log.Printf("classify: unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, classifyErrorResponse{Status: "error", Message: "Internal error"})
	}
}

// recordOutcome persists the classification outcome for data-quality
// visibility. Best effort: persistence problems never affect the
// response.
func (s *Server) recordOutcome(result *ClassificationResult, classifyErr error) {
	if s.db == nil {
		return
	}
	var stage, detail string
	if classifyErr != nil {
		detail = classifyErr.Error()
		stage = "config"
		var stageErr *StageError
		if errors.As(classifyErr, &stageErr) {
			stage = stageErr.Stage
		} else if errors.Is(classifyErr, ErrEmptyInput) {
			stage = "input"
		}
	}
	if _, err := RecordClassification(s.db, result, stage, detail); err != nil {
		log.Printf("failed to record classification outcome: %v", err)
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Request body is not valid JSON"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message cannot be empty"})
		return
	}

	response := s.assistant.Respond(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"response": response})
}

const statusProbeTimeout = 5 * time.Second

type statusResponse struct {
	Status               string `json:"status"`
	Message              string `json:"message"`
	EquivalenceMapStatus string `json:"equivalence_map_status"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	mapStatus := "loaded"
	if s.classifier.Catalog == nil {
		mapStatus = "error"
	}

	if s.assistant.DemoMode() {
		writeJSON(w, http.StatusOK, statusResponse{
			Status:               "demo",
			Message:              "Chatbot is running in demo mode. Set a valid DATABRICKS_TOKEN to enable full functionality.",
			EquivalenceMapStatus: mapStatus,
		})
		return
	}

	if s.classifier.Catalog == nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{
			Status:               "error",
			Message:              "Equivalence catalog failed to load. Change classification is unavailable.",
			EquivalenceMapStatus: mapStatus,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statusProbeTimeout)
	defer cancel()
	if err := s.assistant.Probe(ctx); err != nil {
		writeJSON(w, http.StatusOK, statusResponse{
			Status:               "error",
			Message:              fmt.Sprintf("Error connecting to chat backend: %v", err),
			EquivalenceMapStatus: mapStatus,
		})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:               "connected",
		Message:              "Successfully connected to the chat backend.",
		EquivalenceMapStatus: mapStatus,
	})
}
