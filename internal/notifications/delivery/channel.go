package delivery

import (
	"context"

	"expertly/pkg/model"
)

// Channel delivers a notification over one medium.
type Channel interface {
	Name() string
	// Accepts reports whether the recipient can be reached on this channel at all.
	Accepts(recipient model.Contact) bool
	Send(ctx context.Context, n *model.Notification) error
}
