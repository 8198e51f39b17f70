package shared

import (
	"time"

	"github.com/google/uuid"
)

// DefaultThumbnail is the stock profile image assigned at registration.
// It is never deleted from storage when a user uploads their own.
const DefaultThumbnail = "assets/default.png"

// User represents a principal in the marketplace.
type User struct {
	ID           uuid.UUID `json:"userId"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number"`
	PasswordHash string    `json:"-"`
	Thumbnail    string    `json:"thumbnail"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasCustomThumbnail reports whether the user replaced the stock image.
func (u *User) HasCustomThumbnail() bool {
	return u.Thumbnail != "" && u.Thumbnail != DefaultThumbnail
}
