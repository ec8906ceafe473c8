package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentSubmit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("from pending", func(t *testing.T) {
		doc := &Document{Status: StatusPending}

		err := doc.Submit("https://files.example.com/doc.pdf", now)

		require.NoError(t, err)
		assert.Equal(t, StatusSubmitted, doc.Status)
		require.NotNil(t, doc.FileURL)
		assert.Equal(t, "https://files.example.com/doc.pdf", *doc.FileURL)
		require.NotNil(t, doc.UploadedAt)
		assert.Equal(t, now, *doc.UploadedAt)
	})

	t.Run("re-upload after rejection clears the reason", func(t *testing.T) {
		reason := "illegible scan"
		doc := &Document{Status: StatusRejected, RejectionReason: &reason}

		err := doc.Submit("https://files.example.com/doc-v2.pdf", now)

		require.NoError(t, err)
		assert.Equal(t, StatusSubmitted, doc.Status)
		assert.Nil(t, doc.RejectionReason)
	})

	t.Run("submitted and verified refuse uploads", func(t *testing.T) {
		for _, status := range []DocumentStatus{StatusSubmitted, StatusVerified} {
			doc := &Document{Status: status}

			err := doc.Submit("https://files.example.com/doc.pdf", now)

			assert.ErrorIs(t, err, ErrInvalidTransition, "status %s", status)
			assert.Equal(t, status, doc.Status)
		}
	})
}

func TestDocumentVerify(t *testing.T) {
	t.Run("from submitted", func(t *testing.T) {
		doc := &Document{Status: StatusSubmitted}

		require.NoError(t, doc.Verify())
		assert.Equal(t, StatusVerified, doc.Status)
	})

	t.Run("only submitted can be verified", func(t *testing.T) {
		for _, status := range []DocumentStatus{StatusPending, StatusVerified, StatusRejected} {
			doc := &Document{Status: status}

			assert.ErrorIs(t, doc.Verify(), ErrInvalidTransition, "status %s", status)
		}
	})

	t.Run("verified is terminal", func(t *testing.T) {
		doc := &Document{Status: StatusSubmitted}
		require.NoError(t, doc.Verify())

		assert.ErrorIs(t, doc.Verify(), ErrInvalidTransition)
		assert.ErrorIs(t, doc.Reject("late"), ErrInvalidTransition)
		assert.ErrorIs(t, doc.Submit("url", time.Now()), ErrInvalidTransition)
	})
}

func TestDocumentReject(t *testing.T) {
	t.Run("requires a reason", func(t *testing.T) {
		doc := &Document{Status: StatusSubmitted}

		assert.ErrorIs(t, doc.Reject(""), ErrReasonRequired)
		assert.ErrorIs(t, doc.Reject("   "), ErrReasonRequired)
		assert.Equal(t, StatusSubmitted, doc.Status)
	})

	t.Run("drops the stale file reference", func(t *testing.T) {
		url := "https://files.example.com/doc.pdf"
		uploaded := time.Now()
		doc := &Document{Status: StatusSubmitted, FileURL: &url, UploadedAt: &uploaded}

		require.NoError(t, doc.Reject("wrong financial year"))

		assert.Equal(t, StatusRejected, doc.Status)
		require.NotNil(t, doc.RejectionReason)
		assert.Equal(t, "wrong financial year", *doc.RejectionReason)
		assert.Nil(t, doc.FileURL)
		assert.Nil(t, doc.UploadedAt)
	})

	t.Run("only submitted can be rejected", func(t *testing.T) {
		for _, status := range []DocumentStatus{StatusPending, StatusVerified, StatusRejected} {
			doc := &Document{Status: status}

			assert.ErrorIs(t, doc.Reject("reason"), ErrInvalidTransition, "status %s", status)
		}
	})
}

func TestDocumentIsOverdue(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	t.Run("outstanding past due", func(t *testing.T) {
		for _, status := range []DocumentStatus{StatusPending, StatusRejected} {
			doc := &Document{Status: status, DueDate: &yesterday}
			assert.True(t, doc.IsOverdue(today), "status %s", status)
		}
	})

	t.Run("submitted and verified never overdue", func(t *testing.T) {
		for _, status := range []DocumentStatus{StatusSubmitted, StatusVerified} {
			doc := &Document{Status: status, DueDate: &yesterday}
			assert.False(t, doc.IsOverdue(today), "status %s", status)
		}
	})

	t.Run("no due date", func(t *testing.T) {
		doc := &Document{Status: StatusPending}
		assert.False(t, doc.IsOverdue(today))
	})

	t.Run("due in the future", func(t *testing.T) {
		doc := &Document{Status: StatusPending, DueDate: &tomorrow}
		assert.False(t, doc.IsOverdue(today))
	})
}
