// Package covers stores processed cover images and hands back the path a
// client can fetch them from.
package covers

import (
	"context"
	"io"
)

// Store persists a finished cover image. The write callback streams the
// encoded bytes; implementations must not leave a partial object behind when
// it fails. The returned string is the public path or URL for the object.
type Store interface {
	Save(ctx context.Context, name string, write func(io.Writer) error) (string, error)
}
