package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/queue"
	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
	"github.com/Hrideshsrivastava/audit-bridge/internal/storage"
	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

type fakeDocs struct {
	target       *repository.UploadTarget
	targetErr    error
	submitErr    error
	submittedURL string
}

func (f *fakeDocs) UploadTarget(ctx context.Context, sess *tenancy.Session, documentID int64) (*repository.UploadTarget, error) {
	return f.target, f.targetErr
}

func (f *fakeDocs) MarkSubmitted(ctx context.Context, sess *tenancy.Session, documentID int64, fileURL string, now time.Time) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submittedURL = fileURL
	return nil
}

type fakeBlobs struct {
	putKeys    []string
	deleteKeys []string
	putErr     error
}

func (f *fakeBlobs) Put(ctx context.Context, key string, r io.Reader, meta storage.ObjectMetadata) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.putKeys = append(f.putKeys, key)
	return "https://files.example.com/" + key, nil
}

func (f *fakeBlobs) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, storage.ErrObjectNotFound
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.deleteKeys = append(f.deleteKeys, key)
	return nil
}

func (f *fakeBlobs) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

type fakePublisher struct {
	published []*queue.Message
}

func (f *fakePublisher) Publish(ctx context.Context, target string, msg *queue.Message) error {
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func pendingTarget() *repository.UploadTarget {
	return &repository.UploadTarget{
		Document: entity.Document{
			ID:           101,
			EngagementID: 55,
			FirmID:       3,
			Name:         "Trial Balance",
			Status:       entity.StatusPending,
		},
		ClientID:   17,
		ClientName: "Acme Ltd",
		FirmName:   "Sharp & Co",
		FirmEmail:  "audit@sharp.example.com",
	}
}

func newTestPipeline(docs *fakeDocs, blobs *fakeBlobs, pub *fakePublisher) *Pipeline {
	p := NewPipeline(docs, blobs, pub, "notifications",
		observability.NopLogger{}, observability.NopMetrics{})
	p.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return p
}

func TestPipelineUpload(t *testing.T) {
	t.Run("happy path submits and queues the notification", func(t *testing.T) {
		docs := &fakeDocs{target: pendingTarget()}
		blobs := &fakeBlobs{}
		pub := &fakePublisher{}
		p := newTestPipeline(docs, blobs, pub)
		sess := tenancy.NewClientSession(nil, 17)

		result, err := p.Upload(context.Background(), sess, 101, bytes.NewReader(pdfBytes()))

		require.NoError(t, err)
		assert.Equal(t, entity.StatusSubmitted, result.Status)
		assert.Equal(t, result.FileURL, docs.submittedURL)

		require.Len(t, blobs.putKeys, 1)
		assert.Equal(t, "firm_3/client_17/audit_55/101_1773133200.pdf", blobs.putKeys[0])

		// Nothing goes out until the transaction commits.
		assert.Empty(t, pub.published)
		sess.RunAfterCommitHooks()
		require.Len(t, pub.published, 1)
		assert.Equal(t, "document_submitted", pub.published[0].Type)
	})

	t.Run("verified document conflicts before the blob store is touched", func(t *testing.T) {
		target := pendingTarget()
		target.Status = entity.StatusVerified
		docs := &fakeDocs{target: target}
		blobs := &fakeBlobs{}
		p := newTestPipeline(docs, blobs, &fakePublisher{})

		_, err := p.Upload(context.Background(), tenancy.NewClientSession(nil, 17), 101, bytes.NewReader(pdfBytes()))

		assert.ErrorIs(t, err, repository.ErrConflict)
		assert.Empty(t, blobs.putKeys)
	})

	t.Run("invalid file never reaches the repository", func(t *testing.T) {
		docs := &fakeDocs{targetErr: errors.New("must not be called")}
		p := newTestPipeline(docs, &fakeBlobs{}, &fakePublisher{})

		_, err := p.Upload(context.Background(), tenancy.NewClientSession(nil, 17), 101, bytes.NewReader([]byte("plain text")))

		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("missing document passes through as not found", func(t *testing.T) {
		docs := &fakeDocs{targetErr: repository.ErrNotFound}
		p := newTestPipeline(docs, &fakeBlobs{}, &fakePublisher{})

		_, err := p.Upload(context.Background(), tenancy.NewClientSession(nil, 17), 101, bytes.NewReader(pdfBytes()))

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("lost race removes the stored blob", func(t *testing.T) {
		docs := &fakeDocs{target: pendingTarget(), submitErr: repository.ErrConflict}
		blobs := &fakeBlobs{}
		pub := &fakePublisher{}
		p := newTestPipeline(docs, blobs, pub)
		sess := tenancy.NewClientSession(nil, 17)

		_, err := p.Upload(context.Background(), sess, 101, bytes.NewReader(pdfBytes()))

		assert.ErrorIs(t, err, repository.ErrConflict)
		require.Len(t, blobs.deleteKeys, 1)
		assert.Equal(t, blobs.putKeys[0], blobs.deleteKeys[0])

		sess.RunAfterCommitHooks()
		assert.Empty(t, pub.published)
	})

	t.Run("storage failure aborts without a submit", func(t *testing.T) {
		docs := &fakeDocs{target: pendingTarget()}
		blobs := &fakeBlobs{putErr: errors.New("bucket unavailable")}
		p := newTestPipeline(docs, blobs, &fakePublisher{})

		_, err := p.Upload(context.Background(), tenancy.NewClientSession(nil, 17), 101, bytes.NewReader(pdfBytes()))

		require.Error(t, err)
		assert.Empty(t, docs.submittedURL)
	})
}
