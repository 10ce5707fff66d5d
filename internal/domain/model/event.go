package model

import "time"

// CompletionEvent is the envelope for an asynchronous completion request.
type CompletionEvent struct {
	EventID    string    // unique id for tracing
	Task       TaskRef   // task to complete
	ReceivedAt time.Time // when the request was accepted
}
