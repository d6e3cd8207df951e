package services

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/blogapi/internal/common"
	"github.com/dmitrijs2005/blogapi/internal/logging"
	"github.com/dmitrijs2005/blogapi/internal/server/covers"
)

func writeTempImage(t *testing.T, format string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), A: 255})
	}

	f, err := os.CreateTemp(t.TempDir(), "upload-*")
	require.NoError(t, err)
	defer f.Close()

	switch format {
	case "png":
		require.NoError(t, png.Encode(f, img))
	default:
		require.NoError(t, jpeg.Encode(f, img, nil))
	}
	return f.Name()
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func newTestUploadService(t *testing.T, store covers.Store) *UploadService {
	t.Helper()
	if store == nil {
		fs, err := covers.NewFSStore(t.TempDir())
		require.NoError(t, err)
		store = fs
	}
	return NewUploadService(store, logging.NewDiscardLogger(), semaphore.NewWeighted(2), 5<<20)
}

func TestUploadServiceProcessCover(t *testing.T) {
	fs, err := covers.NewFSStore(t.TempDir())
	require.NoError(t, err)
	s := newTestUploadService(t, fs)

	tmp := writeTempImage(t, "jpeg", 100, 60)

	cover, err := s.ProcessCover(context.Background(), &Upload{
		TempPath:     tmp,
		OriginalName: "photo.jpeg",
		ContentType:  "image/jpeg",
		Size:         fileSize(t, tmp),
	})
	require.NoError(t, err)

	// stored under a random name with the canonical extension
	require.True(t, strings.HasSuffix(cover.FileName, ".jpg"))
	_, err = uuid.Parse(strings.TrimSuffix(cover.FileName, ".jpg"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/covers/"+cover.FileName, cover.PublicPath)

	// stored object is a decodable jpeg
	f, err := os.Open(filepath.Join(fs.Root(), cover.FileName))
	require.NoError(t, err)
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)

	// temp upload is gone
	_, statErr := os.Stat(tmp)
	require.True(t, os.IsNotExist(statErr))
}

func TestUploadServiceResizesWideImages(t *testing.T) {
	fs, err := covers.NewFSStore(t.TempDir())
	require.NoError(t, err)
	s := newTestUploadService(t, fs)

	tmp := writeTempImage(t, "png", 2000, 10)

	cover, err := s.ProcessCover(context.Background(), &Upload{
		TempPath:     tmp,
		OriginalName: "wide.png",
		ContentType:  "image/png",
		Size:         fileSize(t, tmp),
	})
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(fs.Root(), cover.FileName))
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 1600, cfg.Width)
}

func TestUploadServiceRejections(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		fileName    string
		contentType string
		size        int64 // 0 means actual size
		wantErr     error
	}{
		{
			name:        "unsupported content type",
			format:      "jpeg",
			fileName:    "a.jpg",
			contentType: "text/plain",
			wantErr:     common.ErrorUnsupportedMedia,
		},
		{
			name:        "disallowed extension",
			format:      "jpeg",
			fileName:    "a.svg",
			contentType: "image/jpeg",
			wantErr:     common.ErrorUnsupportedMedia,
		},
		{
			name:        "extension disagrees with claimed type",
			format:      "jpeg",
			fileName:    "a.png",
			contentType: "image/jpeg",
			wantErr:     common.ErrorUnsupportedMedia,
		},
		{
			name:        "content does not match claimed type",
			format:      "jpeg",
			fileName:    "a.png",
			contentType: "image/png",
			wantErr:     common.ErrorUnsupportedMedia,
		},
		{
			name:        "oversize",
			format:      "jpeg",
			fileName:    "a.jpg",
			contentType: "image/jpeg",
			size:        6 << 20,
			wantErr:     common.ErrorValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestUploadService(t, nil)
			tmp := writeTempImage(t, tt.format, 10, 10)

			size := tt.size
			if size == 0 {
				size = fileSize(t, tmp)
			}

			_, err := s.ProcessCover(context.Background(), &Upload{
				TempPath:     tmp,
				OriginalName: tt.fileName,
				ContentType:  tt.contentType,
				Size:         size,
			})
			require.ErrorIs(t, err, tt.wantErr)

			// rejected uploads are cleaned up too
			_, statErr := os.Stat(tmp)
			require.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestUploadServiceRejectsGarbageBytes(t *testing.T) {
	s := newTestUploadService(t, nil)

	f, err := os.CreateTemp(t.TempDir(), "upload-*")
	require.NoError(t, err)
	_, err = f.WriteString("not an image at all")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = s.ProcessCover(context.Background(), &Upload{
		TempPath:     f.Name(),
		OriginalName: "a.jpg",
		ContentType:  "image/jpeg",
		Size:         18,
	})
	require.ErrorIs(t, err, common.ErrorUnsupportedMedia)
}

type failingStore struct{}

func (failingStore) Save(ctx context.Context, name string, write func(io.Writer) error) (string, error) {
	return "", os.ErrPermission
}

func TestUploadServiceStoreFailure(t *testing.T) {
	s := newTestUploadService(t, failingStore{})
	tmp := writeTempImage(t, "jpeg", 10, 10)

	_, err := s.ProcessCover(context.Background(), &Upload{
		TempPath:     tmp,
		OriginalName: "a.jpg",
		ContentType:  "image/jpeg",
		Size:         fileSize(t, tmp),
	})
	require.ErrorIs(t, err, common.ErrorInternal)

	_, statErr := os.Stat(tmp)
	require.True(t, os.IsNotExist(statErr))
}
