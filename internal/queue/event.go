// Package queue defines the mail-event payloads exchanged over the message
// broker and the background consumer that drains them.
package queue

// MailQueueName is the durable queue carrying outbound mail jobs.
const MailQueueName = "mail.send"

// Mail event kinds.
const (
	MailVerifyEmail   = "verify_email"
	MailPasswordReset = "password_reset"
)

// MailEvent is published whenever the API needs an email delivered: the
// verification mail after registration and the reset mail after a
// forgot-password request.  The token is the signed one-shot credential
// the mail's link embeds; downstream workers never need to query the
// primary database.
type MailEvent struct {
	ID          string `json:"id"` // UUID, for idempotent consumers
	Kind        string `json:"kind"`
	UserID      uint64 `json:"user_id"`
	Recipient   string `json:"recipient"`
	FullName    string `json:"full_name"`
	Token       string `json:"token"`
	RequestedAt string `json:"requested_at"`
}
