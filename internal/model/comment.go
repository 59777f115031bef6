package model

import "time"

// Comment is a rating + text review left on a post.
//
// UserName and UserAvatar are denormalized copies of the commenter's profile
// at write time. Later profile edits do NOT retroactively update historical
// comments — that is a deliberate product decision, not a missing join.
type Comment struct {
	ID         string    `json:"id"         db:"id"`
	PostID     string    `json:"postId"     db:"post_id"`
	UserID     string    `json:"userId"     db:"user_id"`
	UserName   string    `json:"userName"   db:"user_name"`
	UserAvatar string    `json:"userAvatar" db:"user_avatar"`
	Rating     int       `json:"rating"     db:"rating"` // 1..5
	Comment    string    `json:"comment"    db:"comment"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}
