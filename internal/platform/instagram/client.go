// Package instagram adapts the goinsta private API client to platform.Backend.
package instagram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/Davincible/goinsta/v3"

	"skyreel/internal/platform"
)

// Client is a platform.Backend backed by goinsta. goinsta has no context
// support, so cancellation is only checked between calls.
type Client struct {
	mu    sync.Mutex
	insta *goinsta.Instagram
}

// New returns a client with no active session.
func New() *Client {
	return &Client{}
}

func (c *Client) session() (*goinsta.Instagram, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insta == nil {
		return nil, platform.ErrNotLoggedIn
	}
	return c.insta, nil
}

func (c *Client) Restore(ctx context.Context, session []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	insta, err := goinsta.ImportReader(bytes.NewReader(session))
	if err != nil {
		return platform.ClassifyError("restore session", err)
	}
	c.mu.Lock()
	c.insta = insta
	c.mu.Unlock()
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	insta := goinsta.New(username, password)
	if err := insta.Login(); err != nil {
		return platform.ClassifyError("login", err)
	}
	c.mu.Lock()
	c.insta = insta
	c.mu.Unlock()
	return nil
}

func (c *Client) Export(ctx context.Context) ([]byte, error) {
	insta, err := c.session()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := insta.ExportIO(&buf); err != nil {
		return nil, fmt.Errorf("export session: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Client) AccountInfo(ctx context.Context) (platform.AccountInfo, error) {
	insta, err := c.session()
	if err != nil {
		return platform.AccountInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return platform.AccountInfo{}, err
	}
	account := insta.Account
	if account == nil {
		return platform.AccountInfo{}, platform.ErrNotLoggedIn
	}
	if err := account.Sync(); err != nil {
		return platform.AccountInfo{}, platform.ClassifyError("account info", err)
	}
	return platform.AccountInfo{
		ID:              strconv.FormatInt(account.ID, 10),
		Username:        account.Username,
		FullName:        account.FullName,
		ProfilePicURL:   account.ProfilePicURL,
		ProfilePicURLHD: account.HdProfilePicURLInfo.URL,
	}, nil
}

func (c *Client) UploadReel(ctx context.Context, video io.Reader, caption string) (platform.Media, error) {
	insta, err := c.session()
	if err != nil {
		return platform.Media{}, err
	}
	if err := ctx.Err(); err != nil {
		return platform.Media{}, err
	}
	item, err := insta.Upload(&goinsta.UploadOptions{
		File:    video,
		Caption: caption,
	})
	if err != nil {
		return platform.Media{}, platform.ClassifyError("upload", err)
	}
	if item == nil {
		return platform.Media{}, fmt.Errorf("upload: empty response")
	}
	return platform.Media{ID: fmt.Sprint(item.ID), Code: item.Code}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	insta, err := c.session()
	if err != nil {
		return nil
	}
	c.mu.Lock()
	c.insta = nil
	c.mu.Unlock()
	if err := insta.Logout(); err != nil {
		return platform.ClassifyError("logout", err)
	}
	return nil
}
