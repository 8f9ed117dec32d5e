package presence

import "time"

type Update struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Heading  *float64 `json:"heading,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

type LiveLocation struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
