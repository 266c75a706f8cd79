// Package events announces catalog changes to other services.
package events

import (
	"context"
	"time"
)

type Type string

const (
	ProductCreated Type = "product.created"
	ProductDeleted Type = "product.deleted"
)

type Event struct {
	Type      Type      `json:"type"`
	ProductID int64     `json:"product_id"`
	Product   any       `json:"product,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers events. Delivery is best effort; callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
