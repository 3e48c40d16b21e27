package embedfile_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-embed/pkg/embedfile"
	"github.com/tendant/simple-embed/pkg/embedfile/provider/memory"
)

var appAssets = embedfile.Reference{Owner: "app", Namespace: "app.assets"}

func setupFile(t *testing.T, content string, opts ...embedfile.Option) (*embedfile.File, *memory.Provider, afero.Fs) {
	t.Helper()
	provider := memory.New()
	provider.Put("app", "app.assets.LICENSE.txt", []byte(content))
	fsys := afero.NewMemMapFs()

	opts = append([]embedfile.Option{embedfile.WithFs(fsys)}, opts...)
	return embedfile.New("LICENSE.txt", appAssets, provider, opts...), provider, fsys
}

// failingProvider returns a fixed error, or a reader that fails after a few bytes
type failingProvider struct {
	openErr error
	readErr error
}

func (p failingProvider) Open(ctx context.Context, owner embedfile.Owner, qualifiedName string) (io.ReadCloser, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	return io.NopCloser(io.MultiReader(bytes.NewReader([]byte("part")), errReader{p.readErr})), nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestFileIdentity(t *testing.T) {
	f := embedfile.New("LICENSE.txt", appAssets, nil)
	assert.Equal(t, "LICENSE.txt", f.FileName, "file name defaults to resource name")
	assert.Equal(t, "app.assets.LICENSE.txt", f.ResourceString())
	assert.Equal(t, appAssets, f.Reference())

	named := embedfile.New("LICENSE.txt", appAssets, nil, embedfile.WithFileName("COPYING"))
	assert.Equal(t, "COPYING", named.FileName)
	assert.Equal(t, "LICENSE.txt", named.ResourceName)

	clone := named.Clone()
	clone.SetReference(embedfile.Reference{Owner: "other", Namespace: "other.ns"})
	assert.Equal(t, embedfile.Owner("other"), clone.ResourceOwner)
	assert.Equal(t, "other.ns.LICENSE.txt", clone.ResourceString())
	assert.Equal(t, appAssets, named.Reference(), "clone must not share identity fields")
	assert.Equal(t, "COPYING", clone.FileName)
}

func TestAbsolutePath(t *testing.T) {
	f := embedfile.New("LICENSE.txt", appAssets, nil)

	_, err := f.AbsolutePath("")
	assert.ErrorIs(t, err, embedfile.ErrInvalidArgument)

	_, err = f.AbsolutePath("relative/dir")
	assert.ErrorIs(t, err, embedfile.ErrInvalidArgument)

	base := t.TempDir()
	got, err := f.AbsolutePath(base)
	require.NoError(t, err)
	assert.Equal(t, base+string(filepath.Separator)+"LICENSE.txt", got)

	got, err = f.AbsolutePath(base + string(filepath.Separator))
	require.NoError(t, err)
	assert.Equal(t, base+string(filepath.Separator)+"LICENSE.txt", got)

	up := embedfile.New("x", appAssets, nil, embedfile.WithFileName(filepath.Join("..", "x")))
	got, err = up.AbsolutePath(base)
	require.NoError(t, err)
	assert.Equal(t, base+string(filepath.Separator)+filepath.Join("..", "x"), got, "dot-dot is left in place")
}

func TestContentStream(t *testing.T) {
	ctx := context.Background()

	t.Run("present", func(t *testing.T) {
		f, _, _ := setupFile(t, "MIT")
		rc, err := f.ContentStream(ctx)
		require.NoError(t, err)
		require.NotNil(t, rc)
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		assert.Equal(t, "MIT", string(data))
	})

	t.Run("absent is nil without error", func(t *testing.T) {
		f := embedfile.New("missing", appAssets, memory.New())
		rc, err := f.ContentStream(ctx)
		assert.NoError(t, err)
		assert.Nil(t, rc)
	})

	t.Run("provider failure is returned", func(t *testing.T) {
		boom := errors.New("backend down")
		f := embedfile.New("x", appAssets, failingProvider{openErr: boom})
		_, err := f.ContentStream(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no provider", func(t *testing.T) {
		f := embedfile.New("x", appAssets, nil)
		_, err := f.ContentStream(ctx)
		assert.ErrorIs(t, err, embedfile.ErrNoProvider)
	})
}

func TestContentString(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"plain utf8", []byte("héllo"), "héllo"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "héllo"...), "héllo"},
		{"utf16 le bom", []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}, "hi"},
		{"utf16 be bom", []byte{0xFE, 0xFF, 0x00, 'h', 0x00, 'i'}, "hi"},
		{"utf32 le bom", []byte{0xFF, 0xFE, 0x00, 0x00, 'h', 0x00, 0x00, 0x00, 'i', 0x00, 0x00, 0x00}, "hi"},
		{"utf32 be bom", []byte{0x00, 0x00, 0xFE, 0xFF, 0x00, 0x00, 0x00, 'h', 0x00, 0x00, 0x00, 'i'}, "hi"},
		{"shorter than a mark", []byte("h"), "h"},
		{"empty", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := memory.New()
			provider.Put("app", "app.assets.text", tt.raw)
			f := embedfile.New("text", appAssets, provider)

			got, err := f.ContentString(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("absent", func(t *testing.T) {
		f := embedfile.New("missing", appAssets, memory.New())
		_, err := f.ContentString(context.Background())
		assert.ErrorIs(t, err, embedfile.ErrResourceNotFound)
	})
}

func TestContentBytes(t *testing.T) {
	f, _, _ := setupFile(t, "MIT")
	data, err := f.ContentBytes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("MIT"), data)

	_, err = embedfile.New("missing", appAssets, memory.New()).ContentBytes(context.Background())
	assert.ErrorIs(t, err, embedfile.ErrResourceNotFound)
}

func TestExtractTo(t *testing.T) {
	ctx := context.Background()

	t.Run("creates parent directories", func(t *testing.T) {
		f, _, fsys := setupFile(t, "MIT")
		path := filepath.Join("/out", "a", "b", "LICENSE.txt")

		require.NoError(t, f.ExtractTo(ctx, path))
		data, err := afero.ReadFile(fsys, path)
		require.NoError(t, err)
		assert.Equal(t, "MIT", string(data))
	})

	t.Run("truncates existing file", func(t *testing.T) {
		f, _, fsys := setupFile(t, "short")
		path := "/out/LICENSE.txt"
		require.NoError(t, afero.WriteFile(fsys, path, []byte("a much longer previous body"), 0o644))

		require.NoError(t, f.ExtractTo(ctx, path))
		data, _ := afero.ReadFile(fsys, path)
		assert.Equal(t, "short", string(data))
	})

	t.Run("not found leaves nothing behind", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		f := embedfile.New("missing", appAssets, memory.New(), embedfile.WithFs(fsys))
		path := "/out/nested/missing"

		err := f.ExtractTo(ctx, path)
		require.Error(t, err)
		assert.ErrorIs(t, err, embedfile.ErrResourceNotFound)

		var extractErr *embedfile.ExtractError
		require.True(t, errors.As(err, &extractErr))
		assert.Equal(t, "open", extractErr.Op)
		assert.Equal(t, "app.assets.missing", extractErr.Resource)

		exists, _ := afero.Exists(fsys, path)
		assert.False(t, exists, "no destination file")
		dirExists, _ := afero.DirExists(fsys, "/out/nested")
		assert.False(t, dirExists, "no parent directory either")
	})

	t.Run("copy failure is reported", func(t *testing.T) {
		readErr := errors.New("stream broke")
		f := embedfile.New("x", appAssets, failingProvider{readErr: readErr}, embedfile.WithFs(afero.NewMemMapFs()))

		err := f.ExtractTo(ctx, "/out/x")
		assert.ErrorIs(t, err, readErr)
		var extractErr *embedfile.ExtractError
		require.True(t, errors.As(err, &extractErr))
		assert.Equal(t, "copy", extractErr.Op)
	})

	t.Run("read-only filesystem", func(t *testing.T) {
		f, _, _ := setupFile(t, "MIT", embedfile.WithFs(afero.NewReadOnlyFs(afero.NewMemMapFs())))
		err := f.ExtractTo(ctx, "/out/LICENSE.txt")
		require.Error(t, err)
		var extractErr *embedfile.ExtractError
		require.True(t, errors.As(err, &extractErr))
		assert.Equal(t, "mkdir", extractErr.Op)
	})

	t.Run("cancelled context", func(t *testing.T) {
		f, _, fsys := setupFile(t, "MIT")
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		assert.ErrorIs(t, f.ExtractTo(cctx, "/out/LICENSE.txt"), context.Canceled)
		exists, _ := afero.Exists(fsys, "/out/LICENSE.txt")
		assert.False(t, exists)
	})
}

func TestExists(t *testing.T) {
	f, _, fsys := setupFile(t, "MIT")

	assert.False(t, f.Exists("/out", ""))

	require.NoError(t, afero.WriteFile(fsys, "/out/LICENSE.txt", []byte("x"), 0o644))
	assert.True(t, f.Exists("/out", ""))
	assert.False(t, f.Exists("/out", "OTHER.txt"))

	require.NoError(t, fsys.MkdirAll("/out/dir.txt", 0o755))
	assert.False(t, f.Exists("/out", "dir.txt"), "directories are not regular files")
}

func TestExtract_SkipIfExistingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f, provider, fsys := setupFile(t, "first")
	opts := embedfile.ExtractOptions{FileName: "LICENSE", SkipIfExisting: true}

	written, err := f.Extract(ctx, "/out", opts)
	require.NoError(t, err)
	assert.True(t, written)

	before, err := fsys.Stat("/out/LICENSE")
	require.NoError(t, err)

	provider.Put("app", "app.assets.LICENSE.txt", []byte("second"))
	written, err = f.Extract(ctx, "/out", opts)
	require.NoError(t, err)
	assert.False(t, written)

	after, err := fsys.Stat("/out/LICENSE")
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	data, _ := afero.ReadFile(fsys, "/out/LICENSE")
	assert.Equal(t, "first", string(data))
}

func TestExtract_OverwriteWritesEveryTime(t *testing.T) {
	ctx := context.Background()
	f, provider, fsys := setupFile(t, "first")

	written, err := f.Extract(ctx, "/out", embedfile.ExtractOptions{})
	require.NoError(t, err)
	assert.True(t, written)

	provider.Put("app", "app.assets.LICENSE.txt", []byte("second"))
	written, err = f.Extract(ctx, "/out", embedfile.ExtractOptions{})
	require.NoError(t, err)
	assert.True(t, written)

	data, _ := afero.ReadFile(fsys, "/out/LICENSE.txt")
	assert.Equal(t, "second", string(data))
}

func TestExtract_PropagatesFailure(t *testing.T) {
	fsys := afero.NewMemMapFs()
	f := embedfile.New("missing", appAssets, memory.New(), embedfile.WithFs(fsys))

	written, err := f.Extract(context.Background(), "/out", embedfile.ExtractOptions{SkipIfExisting: true})
	assert.False(t, written)
	assert.ErrorIs(t, err, embedfile.ErrResourceNotFound)
}

func TestTryExtract(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	missing := embedfile.New("missing", appAssets, memory.New(),
		embedfile.WithFs(afero.NewMemMapFs()), embedfile.WithLogger(logger))
	assert.False(t, missing.TryExtract(ctx, "/out", embedfile.ExtractOptions{}))
	assert.Contains(t, logs.String(), "Failed to extract resource")
	assert.Contains(t, logs.String(), "level=ERROR")

	f, _, fsys := setupFile(t, "MIT", embedfile.WithLogger(logger))
	assert.True(t, f.TryExtract(ctx, "/out", embedfile.ExtractOptions{}))
	assert.True(t, f.TryExtract(ctx, "/out", embedfile.ExtractOptions{SkipIfExisting: true}), "skip counts as landed")
	data, _ := afero.ReadFile(fsys, "/out/LICENSE.txt")
	assert.Equal(t, "MIT", string(data))
}

func TestEndToEnd_OnDisk(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	payload := []byte("Permission is hereby granted...\n")
	provider.Put("providerX", "app.assets.LICENSE.txt", payload)

	reg := embedfile.NewRegistry()
	file := embedfile.New("LICENSE.txt", embedfile.Reference{Owner: "providerX", Namespace: "app.assets"}, provider)
	_, err := reg.Set(ctx, "license", file)
	require.NoError(t, err)

	got, err := reg.Get(ctx, "license")
	require.NoError(t, err)
	require.NotNil(t, got)

	out := filepath.Join(t.TempDir(), "out")
	written, err := got.Extract(ctx, out, embedfile.ExtractOptions{})
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(filepath.Join(out, "LICENSE.txt"))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}
