// Package media stores profile images outside the account record. Accounts
// only keep the reference returned by Upload.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FolderAvatars     = "avatars"
	FolderCoverImages = "cover-images"
)

// Upload is a single file handed to a Store.
type Upload struct {
	Folder      string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Store interface {
	// Upload saves the file and returns a reference (URL) to it.
	Upload(ctx context.Context, upload Upload) (string, error)
	// Delete removes the object behind reference. It reports false when the
	// reference does not belong to this store.
	Delete(ctx context.Context, reference string) (bool, error)
}

// ObjectKey builds a unique key under folder that keeps the file's extension.
func ObjectKey(folder, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%d/%02d/%02d/%s%s", folder, now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}
