package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/notifier"
	"github.com/Hrideshsrivastava/audit-bridge/internal/queue"
	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

type createClientRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	AuditTypeID   int64  `json:"audit_type_id"`
	FinancialYear string `json:"financial_year"`
}

// handleCreateClient provisions a client, its engagement, and the template
// document fan-out in one request transaction. The one-time access key is
// returned exactly once.
func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	sess, err := tenancy.MustFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	var req createClientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Name == "" || req.Email == "" || req.AuditTypeID == 0 || req.FinancialYear == "" {
		respondError(w, http.StatusBadRequest, "name, email, audit_type_id and financial_year are required")
		return
	}

	accessKey, err := newAccessKey()
	if err != nil {
		s.deps.Logger.Error("Failed to generate access key", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create client")
		return
	}

	client := &entity.Client{Name: req.Name, Email: req.Email, AccessKey: &accessKey}
	if err := s.deps.Clients.Create(r.Context(), sess, client); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			respondError(w, http.StatusBadRequest, "Email already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to create client")
		return
	}

	eng := &entity.Engagement{
		ClientID:      client.ID,
		AuditTypeID:   req.AuditTypeID,
		FinancialYear: req.FinancialYear,
	}
	if err := s.deps.Engage.Create(r.Context(), sess, eng); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create client")
		return
	}

	created, err := s.deps.Engage.CreateDocumentsFromTemplate(r.Context(), sess, eng.ID, eng.AuditTypeID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create client")
		return
	}

	s.deps.Logger.Info("Client provisioned",
		"client_id", client.ID,
		"engagement_id", eng.ID,
		"documents", created)
	s.deps.Metrics.IncrementCounter("firm.clients_created", nil)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"accessKey": accessKey,
		"clientId":  client.ID,
	})
}

func (s *Server) handleFirmDashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := tenancy.MustFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	rows, err := s.deps.Documents.FirmDashboard(r.Context(), sess)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	if rows == nil {
		rows = []repository.ClientProgress{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleFirmClientDetail(w http.ResponseWriter, r *http.Request) {
	sess, err := tenancy.MustFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	clientID, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid client id")
		return
	}

	detail, err := s.deps.Documents.FirmClientDetail(r.Context(), sess, clientID)
	if err != nil {
		respondRepositoryError(w, err, "Client not found", "Conflict", "Failed to load client details")
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

type decisionRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason"`
}

// handleDocumentDecision verifies or rejects a submitted document. The
// transition is a conditional update, so a decision racing another request
// comes back 409 instead of silently overwriting.
func (s *Server) handleDocumentDecision(w http.ResponseWriter, r *http.Request) {
	sess, err := tenancy.MustFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid document id")
		return
	}

	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Status != string(entity.StatusVerified) && req.Status != string(entity.StatusRejected) {
		respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	// Fetch first so a missing document is a 404, not a conflict.
	doc, err := s.deps.Documents.FirmDocument(r.Context(), sess, documentID)
	if err != nil {
		respondRepositoryError(w, err, "Document not found", "Conflict", "Verification failed")
		return
	}

	switch entity.DocumentStatus(req.Status) {
	case entity.StatusVerified:
		err = s.deps.Documents.Verify(r.Context(), sess, documentID)

	case entity.StatusRejected:
		req.RejectionReason = strings.TrimSpace(req.RejectionReason)
		if req.RejectionReason == "" {
			respondError(w, http.StatusBadRequest, "Rejection reason required")
			return
		}
		err = s.deps.Documents.Reject(r.Context(), sess, documentID, req.RejectionReason)
	}

	if err != nil {
		respondRepositoryError(w, err,
			"Document not found",
			"Only submitted documents can be updated",
			"Verification failed")
		return
	}

	if entity.DocumentStatus(req.Status) == entity.StatusRejected {
		s.queueRejectedNotification(sess, doc, req.RejectionReason)
	}

	s.deps.Metrics.IncrementCounter("firm.decisions", map[string]string{"status": req.Status})
	respondJSON(w, http.StatusOK, map[string]string{"message": "Document " + req.Status})
}

// queueRejectedNotification defers the client email until the rejection is
// committed.
func (s *Server) queueRejectedNotification(sess *tenancy.Session, doc *repository.FirmDocument, reason string) {
	payload, err := json.Marshal(notifier.DocumentRejectedPayload{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		Reason:       reason,
		ClientName:   doc.ClientName,
		ClientEmail:  doc.ClientEmail,
	})
	if err != nil {
		s.deps.Logger.Error("Failed to marshal rejection payload", "error", err)
		return
	}

	msg := &queue.Message{
		ID:      uuid.NewString(),
		Type:    notifier.TaskDocumentRejected,
		Payload: payload,
	}

	sess.AfterCommit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.deps.Publisher.Publish(ctx, s.deps.Config.Queue.NotificationsQueue, msg); err != nil {
			s.deps.Logger.Error("Failed to publish rejected notification",
				"document_id", doc.ID,
				"error", err)
			s.deps.Metrics.IncrementCounter("firm.notify_errors", nil)
		}
	})
}

type dueDateRequest struct {
	DueDate string `json:"due_date"`
}

// handleDueDate sets or clears a document's due date. Expects YYYY-MM-DD;
// an empty value clears the date.
func (s *Server) handleDueDate(w http.ResponseWriter, r *http.Request) {
	sess, err := tenancy.MustFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid document id")
		return
	}

	var req dueDateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var due *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
			return
		}
		due = &parsed
	}

	if err := s.deps.Documents.SetDueDate(r.Context(), sess, documentID, due); err != nil {
		respondRepositoryError(w, err, "Document not found", "Conflict", "Failed to update date")
		return
	}

	s.deps.Metrics.IncrementCounter("firm.due_date_updates", nil)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Due date updated"})
}
