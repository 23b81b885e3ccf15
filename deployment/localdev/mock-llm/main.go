package main

import (
	"encoding/json"
	"hash/fnv"
	"log"
	"net/http"
	"strings"
	"time"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Model  string          `json:"model"`
	Data   []embeddingData `json:"data"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

const embeddingDim = 64

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var prompt string
		for _, m := range req.Messages {
			if m.Role == "user" {
				prompt = m.Content
			}
		}

		resp := chatResponse{
			ID:     "chatcmpl-mock",
			Object: "chat.completion",
			Model:  req.Model,
		}
		choice := chatChoice{FinishReason: "stop"}
		choice.Message.Role = "assistant"
		choice.Message.Content = cannedPlan(prompt)
		resp.Choices = append(resp.Choices, choice)
		writeJSON(w, resp)
	})

	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp := embeddingResponse{Object: "list", Model: req.Model}
		for i, text := range req.Input {
			resp.Data = append(resp.Data, embeddingData{
				Object:    "embedding",
				Index:     i,
				Embedding: hashEmbedding(text),
			})
		}
		writeJSON(w, resp)
	})

	logger := log.New(log.Writer(), "llm-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// cannedPlan answers with whichever JSON shape the prompt asks for, wrapped
// in a little prose to exercise the engine's brace extraction.
func cannedPlan(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "shell command"):
		return "Sure, here you go:\n" +
			`{"command": "df -h", "explanation": "shows filesystem usage"}`
	case strings.Contains(lower, "execution plan") || strings.Contains(lower, "available endpoints"):
		return "Plan below.\n" +
			`{"target_endpoints": ["local"], "commands": ["uptime"], "explanation": "check uptime on the local endpoint"}`
	default:
		return "Here is a remediation plan:\n" +
			`{"diagnosis": "service appears to be stopped", ` +
			`"commands": ["systemctl restart nginx"], ` +
			`"explanation": "restarting the unit usually restores availability"}`
	}
}

// hashEmbedding produces a stable pseudo-embedding so retrieval behaves
// deterministically across runs.
func hashEmbedding(text string) []float32 {
	v := make([]float32, embeddingDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[h.Sum32()%embeddingDim]++
	}
	return v
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
