package history

import "context"

// Repository stores answered questions.
type Repository interface {
	// Append stores entry and sets its ID.
	Append(ctx context.Context, entry *Entry) error
	// Recent returns at most limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]*Entry, error)
}
