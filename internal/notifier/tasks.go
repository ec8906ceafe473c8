package notifier

// Message types on the notifications queue.
const (
	TaskDocumentSubmitted = "document_submitted"
	TaskDocumentRejected  = "document_rejected"
)

// DocumentSubmittedPayload tells the owning firm a client uploaded a file.
type DocumentSubmittedPayload struct {
	DocumentID   int64  `json:"documentId"`
	DocumentName string `json:"documentName"`
	ClientName   string `json:"clientName"`
	FirmName     string `json:"firmName"`
	FirmEmail    string `json:"firmEmail"`
}

// DocumentRejectedPayload tells a client their submission was sent back.
type DocumentRejectedPayload struct {
	DocumentID   int64  `json:"documentId"`
	DocumentName string `json:"documentName"`
	Reason       string `json:"reason"`
	ClientName   string `json:"clientName"`
	ClientEmail  string `json:"clientEmail"`
}
