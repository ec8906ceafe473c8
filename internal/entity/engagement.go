package entity

import "time"

// AuditType is a catalog entry ("Tax", "Statutory", ...). Each type owns a
// template of document names fanned out when an engagement is created.
type AuditType struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Engagement is the (client, audit type, financial year) unit that owns a
// set of required documents.
type Engagement struct {
	ID            int64     `db:"id"`
	ClientID      int64     `db:"client_id"`
	FirmID        int64     `db:"firm_id"`
	AuditTypeID   int64     `db:"audit_type_id"`
	FinancialYear string    `db:"financial_year"`
	CreatedAt     time.Time `db:"created_at"`
}
