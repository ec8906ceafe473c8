package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/notifier"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/queue"
	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
	"github.com/Hrideshsrivastava/audit-bridge/internal/storage"
	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

// DocumentStore is the slice of the document repository the pipeline needs.
type DocumentStore interface {
	UploadTarget(ctx context.Context, sess *tenancy.Session, documentID int64) (*repository.UploadTarget, error)
	MarkSubmitted(ctx context.Context, sess *tenancy.Session, documentID int64, fileURL string, now time.Time) error
}

// Result is returned to the uploading client.
type Result struct {
	DocumentID int64                 `json:"documentId"`
	Status     entity.DocumentStatus `json:"status"`
	FileURL    string                `json:"fileUrl"`
}

// Pipeline runs a client upload end to end: validate the file, check the
// document accepts a submission, store the blob, record the transition, and
// queue the firm notification for after the commit.
//
// The lifecycle check runs before the blob store so a document in a terminal
// state never costs a storage write. The conditional update repeats the check
// at commit time; if another request won the race, the stored blob is
// removed best-effort and the caller gets ErrConflict.
type Pipeline struct {
	docs      DocumentStore
	blobs     storage.ObjectStorage
	publisher queue.Publisher
	queueName string
	logger    observability.Logger
	metrics   observability.Metrics
	now       func() time.Time
}

func NewPipeline(docs DocumentStore, blobs storage.ObjectStorage, publisher queue.Publisher, queueName string, logger observability.Logger, metrics observability.Metrics) *Pipeline {
	return &Pipeline{
		docs:      docs,
		blobs:     blobs,
		publisher: publisher,
		queueName: queueName,
		logger:    logger.WithFields(map[string]interface{}{"component": "upload_pipeline"}),
		metrics:   metrics,
		now:       time.Now,
	}
}

// Upload processes a single file upload for the session's client.
func (p *Pipeline) Upload(ctx context.Context, sess *tenancy.Session, documentID int64, r io.Reader) (*Result, error) {
	p.metrics.IncrementCounter("upload.attempts", nil)

	file, err := ValidateFile(r)
	if err != nil {
		p.metrics.IncrementCounter("upload.rejected", map[string]string{"reason": "validation"})
		return nil, err
	}

	target, err := p.docs.UploadTarget(ctx, sess, documentID)
	if err != nil {
		return nil, err
	}

	if !target.CanSubmit() {
		p.metrics.IncrementCounter("upload.rejected", map[string]string{"reason": "status"})
		return nil, repository.ErrConflict
	}

	now := p.now().UTC()
	key := fmt.Sprintf("firm_%d/client_%d/audit_%d/%d_%d%s",
		target.FirmID, target.ClientID, target.EngagementID, target.ID, now.Unix(), file.Extension)

	fileURL, err := p.blobs.Put(ctx, key, bytes.NewReader(file.Content), storage.ObjectMetadata{
		ContentType: file.ContentType,
		Size:        int64(len(file.Content)),
	})
	if err != nil {
		p.metrics.IncrementCounter("upload.errors", map[string]string{"stage": "store"})
		return nil, fmt.Errorf("store upload: %w", err)
	}

	if err := p.docs.MarkSubmitted(ctx, sess, documentID, fileURL, now); err != nil {
		// The blob is already durable; drop it so a lost race leaves no
		// orphan behind.
		if delErr := p.blobs.Delete(ctx, key); delErr != nil {
			p.logger.Warn("Failed to remove orphaned upload", "key", key, "error", delErr)
		}
		return nil, err
	}

	p.queueSubmittedNotification(sess, target)

	p.logger.Info("Document submitted",
		"document_id", documentID,
		"client_id", target.ClientID,
		"size_bytes", len(file.Content))
	p.metrics.IncrementCounter("upload.success", nil)

	return &Result{
		DocumentID: target.ID,
		Status:     entity.StatusSubmitted,
		FileURL:    fileURL,
	}, nil
}

// queueSubmittedNotification defers the firm notification until the request
// transaction commits. A rolled-back upload sends nothing.
func (p *Pipeline) queueSubmittedNotification(sess *tenancy.Session, target *repository.UploadTarget) {
	payload, err := json.Marshal(notifier.DocumentSubmittedPayload{
		DocumentID:   target.ID,
		DocumentName: target.Name,
		ClientName:   target.ClientName,
		FirmName:     target.FirmName,
		FirmEmail:    target.FirmEmail,
	})
	if err != nil {
		p.logger.Error("Failed to marshal notification payload", "error", err)
		return
	}

	msg := &queue.Message{
		ID:      uuid.NewString(),
		Type:    notifier.TaskDocumentSubmitted,
		Payload: payload,
	}

	sess.AfterCommit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := p.publisher.Publish(ctx, p.queueName, msg); err != nil {
			// The upload itself is committed; delivery failure only costs
			// the courtesy email.
			p.logger.Error("Failed to publish submitted notification",
				"document_id", target.ID,
				"error", err)
			p.metrics.IncrementCounter("upload.notify_errors", nil)
		}
	})
}
