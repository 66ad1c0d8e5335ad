// Command openai-stub serves a deterministic OpenAI-compatible API for
// exercising the remediation advisor without a real model.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := strings.TrimSpace(os.Getenv("MODEL_ID"))
	if model == "" {
		model = "test-model"
	}
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		addr = ":8081"
	}
	log.Info().Str("addr", addr).Str("model", model).Msg("openai stub listening")
	if err := http.ListenAndServe(addr, newMux(model)); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func newMux(model string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, openai.ModelsList{Models: []openai.Model{{ID: model, Object: "model"}}})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var sys, user string
		for _, m := range req.Messages {
			switch m.Role {
			case openai.ChatMessageRoleSystem:
				sys = m.Content
			case openai.ChatMessageRoleUser:
				user = m.Content
			}
		}
		content := "{}"
		if strings.Contains(sys, "report compliance reviewer") {
			content = reviewerReply(user)
		}
		writeJSON(w, openai.ChatCompletionResponse{
			ID:      "stub",
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	})
	return mux
}

type stubNote struct {
	Ref    string `json:"ref"`
	Advice string `json:"advice"`
}

// reviewerReply writes one note per "- ref=<ref> ... rule=<name>: ..." line.
func reviewerReply(user string) string {
	notes := []stubNote{}
	for _, line := range strings.Split(user, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ref=") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "- ref="))
		if len(fields) == 0 {
			continue
		}
		rule := "this finding"
		if i := strings.Index(line, "rule=\""); i >= 0 {
			rest := line[i+len("rule=\""):]
			if j := strings.IndexByte(rest, '"'); j > 0 {
				rule = rest[:j]
			}
		}
		notes = append(notes, stubNote{Ref: fields[0], Advice: fmt.Sprintf("Revise the report to satisfy %s.", rule)})
	}
	b, _ := json.Marshal(map[string]any{
		"notes":   notes,
		"summary": fmt.Sprintf("%d findings reviewed.", len(notes)),
	})
	return string(b)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
