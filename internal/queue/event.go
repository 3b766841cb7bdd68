// Package queue defines message payloads exchanged over the message broker.
package queue

// ReferralProcessedQueue is the durable queue referral events travel on.
const ReferralProcessedQueue = "referral.processed"

// ReferralProcessedEvent is published after a referral submission has been
// committed. It carries enough for downstream consumers to audit or notify
// without querying the primary database.
type ReferralProcessedEvent struct {
    UserID         uint64 `json:"user_id"`
    Login          string `json:"login"`
    Created        bool   `json:"created"`
    DocumentID     uint64 `json:"document_id"`
    DocumentTypeID int    `json:"document_type_id"`
    ProcessedAt    string `json:"processed_at"`
}
