package feed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"feed-merger/core/graph"
	"feed-merger/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUploadAndLoadObject(t *testing.T) {
	ctx := context.Background()
	g, err := Load(mapFS(metroTables), Options{})
	require.NoError(t, err)

	client := new(mocks.Client)
	var uploaded []byte
	client.On("PutObject", ctx, "feeds", "merged/out.zip", mock.Anything, mock.AnythingOfType("int64"),
		minio.PutObjectOptions{ContentType: "application/zip"}).
		Run(func(args mock.Arguments) {
			data, err := io.ReadAll(args.Get(3).(io.Reader))
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), args.Get(4).(int64))
			uploaded = data
		}).
		Return(minio.UploadInfo{Key: "merged/out.zip"}, nil)

	info, err := Upload(ctx, client, "feeds", "merged/out.zip", g)
	require.NoError(t, err)
	assert.Equal(t, "merged/out.zip", info.Key)
	require.NotEmpty(t, uploaded)

	client.On("GetObject", ctx, "feeds", "merged/out.zip", minio.GetObjectOptions{}).
		Return(io.NopCloser(bytes.NewReader(uploaded)), nil)

	back, err := LoadObject(ctx, client, "feeds", "merged/out.zip", Options{ScopedIDs: true})
	require.NoError(t, err)
	assert.Equal(t, "out", back.Name())
	assert.Equal(t, values(g, graph.KindTrip), values(back, graph.KindTrip))
	client.AssertExpectations(t)
}

func TestLoadObjectErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("get fails", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("GetObject", ctx, "feeds", "a.zip", minio.GetObjectOptions{}).
			Return(nil, errors.New("connection refused"))

		_, err := LoadObject(ctx, client, "feeds", "a.zip", Options{})
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("not an archive", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("GetObject", ctx, "feeds", "a.zip", minio.GetObjectOptions{}).
			Return(io.NopCloser(bytes.NewReader([]byte("plain text"))), nil)

		_, err := LoadObject(ctx, client, "feeds", "a.zip", Options{})
		assert.Error(t, err)
	})
}

func TestUploadFails(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("access denied"))

	_, err := Upload(ctx, client, "feeds", "out.zip", graph.New("empty"))
	assert.ErrorContains(t, err, "access denied")
}
