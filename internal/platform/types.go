package platform

import (
	"context"
	"errors"
	"io"
)

// ErrNotLoggedIn is returned by operations that need an authenticated session.
var ErrNotLoggedIn = errors.New("platform: not logged in")

// AccountInfo is the subset of the account profile skyreel uses.
type AccountInfo struct {
	ID              string
	Username        string
	FullName        string
	ProfilePicURL   string
	ProfilePicURLHD string
}

// PictureURL returns the best available profile picture URL.
func (a AccountInfo) PictureURL() string {
	if a.ProfilePicURLHD != "" {
		return a.ProfilePicURLHD
	}
	return a.ProfilePicURL
}

// Media identifies a published post.
type Media struct {
	ID   string
	Code string
}

// Backend is the platform API the account drives. Implementations should
// return errors classified with ClassifyError so account problems are not
// retried.
type Backend interface {
	// Restore loads a previously exported session.
	Restore(ctx context.Context, session []byte) error
	// Login performs a fresh credential login.
	Login(ctx context.Context, username, password string) error
	// Export serializes the current session.
	Export(ctx context.Context) ([]byte, error)
	AccountInfo(ctx context.Context) (AccountInfo, error)
	UploadReel(ctx context.Context, video io.Reader, caption string) (Media, error)
	Logout(ctx context.Context) error
}
