package embedfile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ExtractOptions controls directory-relative extraction
type ExtractOptions struct {
	// FileName overrides the on-disk name. Empty keeps File.FileName.
	FileName string
	// SkipIfExisting leaves an existing regular file untouched
	SkipIfExisting bool
}

// ExtractTo writes the payload to path, replacing any existing file.
// Missing parent directories are created once the payload is known to exist.
func (f *File) ExtractTo(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.logger.Debug("Extracting resource", "resource", f.ResourceString(), "path", path)

	src, err := f.ContentStream(ctx)
	if err != nil {
		return &ExtractError{Resource: f.ResourceString(), Path: path, Op: "open", Err: err}
	}
	if src == nil {
		return &ExtractError{Resource: f.ResourceString(), Path: path, Op: "open", Err: ErrResourceNotFound}
	}
	defer src.Close()

	if err := f.createDirectory(filepath.Dir(path)); err != nil {
		return &ExtractError{Resource: f.ResourceString(), Path: path, Op: "mkdir", Err: err}
	}

	dst, err := f.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &ExtractError{Resource: f.ResourceString(), Path: path, Op: "create", Err: err}
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return &ExtractError{Resource: f.ResourceString(), Path: path, Op: "copy", Err: err}
	}
	if err := dst.Close(); err != nil {
		return &ExtractError{Resource: f.ResourceString(), Path: path, Op: "close", Err: err}
	}
	return nil
}

// Exists reports whether a regular file sits where Extract would write.
func (f *File) Exists(directory, fileName string) bool {
	path := combine(directory, f.targetName(fileName))

	info, err := f.fs.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Debug("Could not stat target", "path", path, "err", err)
		}
		return false
	}
	return info.Mode().IsRegular()
}

// Extract writes the payload into directory. It returns false without
// writing when SkipIfExisting is set and the target already exists.
func (f *File) Extract(ctx context.Context, directory string, opts ExtractOptions) (bool, error) {
	path := combine(directory, f.targetName(opts.FileName))

	if opts.SkipIfExisting && f.Exists(directory, opts.FileName) {
		f.logger.Debug("Target exists, skipping", "resource", f.ResourceString(), "path", path)
		return false, nil
	}

	if err := f.ExtractTo(ctx, path); err != nil {
		return false, err
	}
	return true, nil
}

// TryExtract runs Extract and reports failure as false after logging it.
// A skipped extraction counts as success.
func (f *File) TryExtract(ctx context.Context, directory string, opts ExtractOptions) bool {
	f.logger.Debug("Trying to extract resource", "resource", f.ResourceString(), "directory", directory, "file_name", opts.FileName)

	if _, err := f.Extract(ctx, directory, opts); err != nil {
		f.logger.Error("Failed to extract resource",
			"resource", f.ResourceString(),
			"directory", directory,
			"file_name", opts.FileName,
			"err", err,
		)
		return false
	}
	return true
}

func (f *File) createDirectory(dir string) error {
	if exists, err := afero.DirExists(f.fs, dir); err == nil && exists {
		return nil
	}

	f.logger.Debug("Creating parent directory", "dir", dir)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return nil
}
