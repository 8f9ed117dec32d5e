package tracker

import (
	"context"
	"time"
)

// Reading is one fix from a position source.
type Reading struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Source produces readings until ctx is done. A value on the error channel
// reports a failed fix; the source may keep going afterwards.
type Source interface {
	Watch(ctx context.Context) (<-chan Reading, <-chan error)
}
