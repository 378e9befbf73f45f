package mediafake_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jrsteele09/go-account-service/media"
	"github.com/jrsteele09/go-account-service/media/mediafake"
	"github.com/stretchr/testify/require"
)

func TestFakeMediaStore(t *testing.T) {
	ctx := context.Background()
	store := mediafake.NewFakeMediaStore()

	ref, err := store.Upload(ctx, media.Upload{Folder: media.FolderAvatars, Filename: "a.jpg", Body: strings.NewReader("jpeg")})
	require.NoError(t, err)
	require.Contains(t, ref, "/avatars/")

	data, ok := store.Get(ref)
	require.True(t, ok)
	require.Equal(t, "jpeg", string(data))

	deleted, err := store.Delete(ctx, ref)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Zero(t, store.Len())

	deleted, err = store.Delete(ctx, ref)
	require.NoError(t, err)
	require.False(t, deleted)
}
