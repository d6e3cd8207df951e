package services

import (
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	// registered so DecodeConfig can sniff the actual container format
	_ "image/gif"
	_ "image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/blogapi/internal/common"
	"github.com/dmitrijs2005/blogapi/internal/logging"
	"github.com/dmitrijs2005/blogapi/internal/server/covers"
)

const (
	// MaxFilesPerRequest and MaxFieldsPerRequest cap multipart uploads.
	MaxFilesPerRequest  = 1
	MaxFieldsPerRequest = 10

	// maxCoverWidth is the resize ceiling; narrower images keep their size.
	maxCoverWidth = 1600

	jpegQuality = 82

	defaultCodecTimeout = 30 * time.Second
)

// mimeExtensions maps each accepted content type to the canonical extension
// the stored object gets. Anything outside this map is rejected.
var mimeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// allowedExtensions is checked against the client's file name independently
// of the content type; both must pass.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// sniffFormats maps a claimed content type to the format name Go's image
// registry reports for it.
var sniffFormats = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// canonicalExtension folds extension aliases (.jpeg and .jpg are the same
// format) so they can be compared with a claimed type's canonical form.
func canonicalExtension(ext string) string {
	if ext == ".jpeg" {
		return ".jpg"
	}
	return ext
}

// Upload describes an incoming file already spooled to a temp path by the
// HTTP layer.
type Upload struct {
	TempPath     string
	OriginalName string
	ContentType  string
	Size         int64
}

// Cover is the stored result.
type Cover struct {
	FileName   string
	PublicPath string
}

// UploadService validates and re-encodes cover images. Decoding untrusted
// bytes runs on the shared bounded pool; the original upload is never stored.
type UploadService struct {
	store        covers.Store
	logger       logging.Logger
	pool         *semaphore.Weighted
	maxBytes     int64
	codecTimeout time.Duration
}

type UploadOption func(*UploadService)

func WithCodecTimeout(d time.Duration) UploadOption {
	return func(s *UploadService) {
		s.codecTimeout = d
	}
}

func NewUploadService(store covers.Store, logger logging.Logger, pool *semaphore.Weighted, maxBytes int64, opts ...UploadOption) *UploadService {
	s := &UploadService{
		store:        store,
		logger:       logger,
		pool:         pool,
		maxBytes:     maxBytes,
		codecTimeout: defaultCodecTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ProcessCover double-checks type and extension, decodes the image, resizes
// it if needed and stores a freshly encoded copy under a random name. The
// temp file is removed no matter which path is taken.
func (s *UploadService) ProcessCover(ctx context.Context, up *Upload) (*Cover, error) {
	defer os.Remove(up.TempPath)

	canonicalExt, ok := mimeExtensions[strings.ToLower(up.ContentType)]
	if !ok {
		s.logger.Security(ctx, "upload rejected: content type", "content_type", up.ContentType)
		return nil, common.ErrorUnsupportedMedia
	}
	ext := strings.ToLower(filepath.Ext(up.OriginalName))
	if !allowedExtensions[ext] {
		s.logger.Security(ctx, "upload rejected: extension", "ext", ext)
		return nil, common.ErrorUnsupportedMedia
	}
	// both checks can pass alone and still disagree (.png named, jpeg
	// claimed); that is rejected too
	if canonicalExtension(ext) != canonicalExt {
		s.logger.Security(ctx, "upload rejected: extension/type mismatch",
			"ext", ext, "content_type", up.ContentType)
		return nil, common.ErrorUnsupportedMedia
	}
	if up.Size <= 0 || up.Size > s.maxBytes {
		return nil, common.ErrorValidation
	}

	if err := s.pool.Acquire(ctx, 1); err != nil {
		return nil, common.ErrorInternal
	}
	defer s.pool.Release(1)

	ctx, cancel := context.WithTimeout(ctx, s.codecTimeout)
	defer cancel()

	img, err := s.decode(ctx, up)
	if err != nil {
		return nil, err
	}

	if img.Bounds().Dx() > maxCoverWidth {
		img = imaging.Resize(img, maxCoverWidth, 0, imaging.Lanczos)
	}

	name := uuid.New().String() + canonicalExt

	publicPath, err := s.store.Save(ctx, name, func(w io.Writer) error {
		return s.encode(w, img, up.ContentType)
	})
	if err != nil {
		s.logger.Error(ctx, "storing cover", "name", name, "err", err)
		return nil, common.ErrorInternal
	}

	return &Cover{FileName: name, PublicPath: publicPath}, nil
}

// decode verifies the bytes really are the claimed format, then decodes the
// pixels with EXIF orientation applied.
func (s *UploadService) decode(ctx context.Context, up *Upload) (image.Image, error) {
	f, err := os.Open(up.TempPath)
	if err != nil {
		s.logger.Error(ctx, "opening upload", "err", err)
		return nil, common.ErrorInternal
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil || format != sniffFormats[strings.ToLower(up.ContentType)] {
		s.logger.Security(ctx, "upload rejected: content mismatch",
			"content_type", up.ContentType, "sniffed", format)
		return nil, common.ErrorUnsupportedMedia
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, common.ErrorInternal
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		s.logger.Security(ctx, "upload rejected: decode failed", "err", err)
		return nil, common.ErrorUnsupportedMedia
	}
	return img, nil
}

func (s *UploadService) encode(w io.Writer, img image.Image, contentType string) error {
	switch strings.ToLower(contentType) {
	case "image/png":
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case "image/gif":
		return imaging.Encode(w, img, imaging.GIF)
	default:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	}
}
