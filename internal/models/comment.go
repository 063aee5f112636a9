package models

import "time"

// Comment is feedback on an item, allowed only for users whose approved
// booking of that item has already started.
type Comment struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	AuthorID  int64     `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
