package products

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/catalog/internal/domain/product"
	"github.com/h2non/filetype"
)

const (
	fallbackExtension = "bin"

	// how many "-N" suffixes uploadImage tries when a name is taken
	maxNameAttempts = 100
)

// ImageName is "<upload unix seconds>.<ext>". The extension comes from the
// sniffed content, or from the client's filename when the bytes match no
// known type.
func ImageName(up product.Upload, at time.Time) string {
	return imageName(up, at, 0)
}

// imageName adds "-<attempt>" after the timestamp for attempt > 0.
func imageName(up product.Upload, at time.Time, attempt int) string {
	base := strconv.FormatInt(at.Unix(), 10)
	if attempt > 0 {
		base += "-" + strconv.Itoa(attempt)
	}
	return base + "." + imageExtension(up)
}

func imageExtension(up product.Upload) string {
	kind, err := filetype.Match(up.Data)
	if err == nil && kind != filetype.Unknown && kind.Extension != "" {
		return kind.Extension
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filepath.Base(up.Filename)), "."))
	if ext != "" && isAlnum(ext) {
		return ext
	}

	return fallbackExtension
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// uploadImage never replaces an existing file. Two uploads in the same second
// get "<ts>.<ext>" and "<ts>-1.<ext>".
func (s *Store) uploadImage(ctx context.Context, up product.Upload) (string, error) {
	at := s.now()

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := imageName(up, at, attempt)

		err := s.files.Store(ctx, up.Data, name)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		s.prom.ObserveImageOp("store", err)

		if err != nil {
			return "", fmt.Errorf("%w: store image %s: %v", product.ErrPersistence, name, err)
		}

		return name, nil
	}

	err := fmt.Errorf("%w: no free image name for %s after %d attempts", product.ErrPersistence, imageName(up, at, 0), maxNameAttempts)
	s.prom.ObserveImageOp("store", err)

	return "", err
}

// deleteImage is best effort. A failure leaves an orphaned file behind and is
// only logged, so it never blocks the product operation.
func (s *Store) deleteImage(ctx context.Context, productID int64, name string) {
	if name == "" {
		return
	}

	exists, err := s.files.Exists(ctx, name)
	if err != nil {
		s.prom.ObserveImageOp("delete", err)
		s.log.WarnContext(ctx, "image existence check failed",
			"product_id", productID, "image", name, "err", err)
		return
	}
	if !exists {
		return
	}

	err = s.files.Delete(ctx, name)
	s.prom.ObserveImageOp("delete", err)

	if err != nil {
		s.log.WarnContext(ctx, "image delete failed, file left orphaned",
			"product_id", productID, "image", name, "err", err)
	}
}
