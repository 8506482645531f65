package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/veyra/automarket/internal/db"
	"github.com/veyra/automarket/internal/whatsapp"
	"github.com/veyra/automarket/internal/workflow"
)

// RunRequest triggers a pipeline run from an externally supplied
// conversation.
type RunRequest struct {
	ThreadID string       `json:"thread_id" validate:"required"`
	Messages []RunMessage `json:"messages" validate:"required,min=1,dive"`
}

// RunMessage is one conversation turn.
type RunMessage struct {
	Parts []RunPart `json:"parts" validate:"required,min=1,dive"`
}

// RunPart is one text fragment of a turn.
type RunPart struct {
	Text string `json:"text" validate:"required"`
}

// Transcript flattens the request messages into one transcript document.
func (r *RunRequest) Transcript() string {
	var lines []string
	for _, msg := range r.Messages {
		for _, part := range msg.Parts {
			lines = append(lines, part.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// handleRun creates (or resumes) the thread's workflow and drives it as far
// as it will go, synchronously.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if _, err := s.store.CreateWorkflow(r.Context(), req.ThreadID, req.Transcript()); err != nil {
		if !errors.Is(err, workflow.ErrAlreadyExists) {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		log.Printf("[RUN] thread %s: resuming existing workflow", req.ThreadID)
	}

	rec, err := s.engine.Advance(r.Context(), req.ThreadID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleWebhookVerify answers the Meta subscription handshake.
func (s *Server) handleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	challenge, ok := whatsapp.VerifyChallenge(r.URL.Query(), s.whatsappCfg.VerifyToken)
	if !ok {
		s.errorResponse(w, http.StatusForbidden, "verification failed")
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// handleWebhookEvent ingests inbound WhatsApp messages. Each text message is
// recorded, a workflow is created for new threads, and the pipeline is
// advanced in the background so the webhook can acknowledge quickly.
func (s *Server) handleWebhookEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !whatsapp.VerifySignature(s.whatsappCfg.AppSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		s.errorResponse(w, http.StatusForbidden, "invalid signature")
		return
	}

	event, err := whatsapp.ParseEvent(body)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid payload")
		return
	}

	for _, msg := range event.TextMessages() {
		s.ingestMessage(r.Context(), msg)
	}

	// Meta expects a prompt 200 regardless of processing outcome.
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "received"})
}

// ingestMessage records one inbound message and kicks the thread's pipeline.
// The sender's phone number is the thread ID.
func (s *Server) ingestMessage(ctx context.Context, msg whatsapp.InboundMessage) {
	threadID := msg.From

	messageID := msg.ID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	if err := s.messages.InsertMessage(ctx, &db.Message{
		MessageID:   messageID,
		ThreadID:    threadID,
		PhoneNumber: msg.From,
		Role:        db.RoleUser,
		Content:     msg.Text.Body,
	}); err != nil {
		log.Printf("[WEBHOOK] thread %s: failed to record message: %v", threadID, err)
		return
	}

	if _, err := s.store.CreateWorkflow(ctx, threadID, msg.Text.Body); err != nil {
		if !errors.Is(err, workflow.ErrAlreadyExists) {
			log.Printf("[WEBHOOK] thread %s: failed to create workflow: %v", threadID, err)
			return
		}
	}

	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), s.advanceTimeout)
		defer cancel()

		if _, err := s.engine.Advance(runCtx, threadID); err != nil {
			log.Printf("[WEBHOOK] thread %s: pipeline run failed: %v", threadID, err)
		}
	}()
}

// handlePage serves a published landing page from the store.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("thread_id")

	html, err := s.store.PageContent(r.Context(), threadID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if html == "" {
		s.errorResponse(w, http.StatusNotFound, "page not generated yet")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
