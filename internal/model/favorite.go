package model

import "time"

// Favorite is a pure association record: a user bookmarked a post.
//
// Uniqueness of the (UserID, PostID) pair is enforced by the toggle logic in
// the favorite service, not by a DB constraint. A racing toggle from two tabs
// can momentarily duplicate or drop the pair; that window is accepted.
type Favorite struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	PostID    string    `json:"postId"    db:"post_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
