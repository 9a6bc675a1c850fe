package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaComplete(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var req OllamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		if len(req.Messages) == 1 {
			gotPrompt = req.Messages[0].Content
		}
		if req.Stream {
			t.Error("Reconciliation requests must not stream")
		}

		json.NewEncoder(w).Encode(OllamaChatResponse{
			Message: OllamaMessage{Role: "assistant", Content: `{"create-or-update":{},"delete":[]}`},
			Done:    true,
		})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(AdapterConfig{Model: "codellama", BaseURL: server.URL})

	reply, err := adapter.Complete(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gotPrompt != "the prompt" {
		t.Errorf("Prompt not forwarded, got %q", gotPrompt)
	}
	if reply != `{"create-or-update":{},"delete":[]}` {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestOllamaCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(AdapterConfig{Model: "codellama", BaseURL: server.URL})

	_, err := adapter.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Expected ErrUnreachable, got %v", err)
	}
}

func TestOllamaCompleteUnreachable(t *testing.T) {
	adapter := NewOllamaAdapter(AdapterConfig{Model: "codellama", BaseURL: "http://127.0.0.1:1"})

	_, err := adapter.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Expected ErrUnreachable, got %v", err)
	}
}

func TestOllamaCompleteEmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OllamaChatResponse{Done: true})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(AdapterConfig{Model: "codellama", BaseURL: server.URL})

	_, err := adapter.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrRefused) {
		t.Errorf("Expected ErrRefused, got %v", err)
	}
}
