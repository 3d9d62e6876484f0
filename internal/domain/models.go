// Package domain defines the persistence models for subscriptions, newsletter
// issues, and the issue delivery queue. These types are mapped with GORM and
// form the core data layer of the newsletter application.
package domain

import "time"

// Subscription statuses. A subscription starts as pending and becomes
// confirmed once the subscriber follows the emailed confirmation link.
// Only confirmed subscriptions receive newsletter issues.
const (
	SubscriptionPending   = "pending_confirmation"
	SubscriptionConfirmed = "confirmed"
)

// Subscription represents a (potential) newsletter recipient.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: subscriber address, unique across the table.
//   - Name: display name captured at signup.
//   - Status: pending_confirmation or confirmed (enforced by DB constraint).
//   - SubscribedAt: signup timestamp (UTC).
type Subscription struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"         gorm:"type:varchar(320);not null;uniqueIndex:ux_subscriptions_email"`
	Name         string    `json:"name"          gorm:"type:varchar(256);not null"`
	Status       string    `json:"status"        gorm:"type:varchar(32);not null;index;check:status IN ('pending_confirmation','confirmed')"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// TableName returns the database table name for Subscription.
func (Subscription) TableName() string { return "subscriptions" }

// SubscriptionToken links a one-time confirmation token to a pending
// subscription. Tokens are generated at signup and redeemed by the
// confirmation endpoint.
type SubscriptionToken struct {
	Token          string `gorm:"type:char(36);primaryKey"`
	SubscriptionID string `gorm:"type:char(36);not null;index"`
}

// TableName returns the database table name for SubscriptionToken.
func (SubscriptionToken) TableName() string { return "subscription_tokens" }

// NewsletterIssue is a published newsletter edition. Issues are write-once:
// the publish transaction inserts the row and nothing updates it afterwards.
// The delivery worker only ever reads it.
type NewsletterIssue struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Title       string    `json:"title"        gorm:"type:text;not null"`
	TextContent string    `json:"text_content" gorm:"type:text;not null"`
	HTMLContent string    `json:"html_content" gorm:"type:text;not null;column:html_content"`
	PublishedAt time.Time `json:"published_at"`
}

// TableName returns the database table name for NewsletterIssue.
func (NewsletterIssue) TableName() string { return "newsletter_issues" }

// DeliveryTask is one unit of outstanding delivery work: "send issue X to
// subscriber Y". The pair is the identity; there is no surrogate key. Rows
// are inserted by the publish transaction (one per confirmed subscriber at
// publish time) and deleted by the worker once a send attempt reaches a
// terminal outcome. Progress of a delivery run is defined entirely by which
// rows still exist.
type DeliveryTask struct {
	NewsletterIssueID string `gorm:"type:char(36);primaryKey;column:newsletter_issue_id"`
	SubscriberEmail   string `gorm:"type:varchar(320);primaryKey"`
}

// TableName returns the database table name for DeliveryTask.
func (DeliveryTask) TableName() string { return "issue_delivery_queue" }
