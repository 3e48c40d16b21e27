package embedfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

var (
	utf32LEBOM = []byte{0xFF, 0xFE, 0x00, 0x00}
	utf32BEBOM = []byte{0x00, 0x00, 0xFE, 0xFF}
)

// NamespaceSeparator joins a namespace and a resource name into the
// qualified resource string handed to providers.
const NamespaceSeparator = "."

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))

// File describes one embedded payload and how to reach its bytes.
type File struct {
	// FileName is the name used when materializing on disk
	FileName string
	// ResourceName is the bare identifier inside the namespace
	ResourceName string
	// ResourceNamespace groups payloads of one logical module
	ResourceNamespace string
	// ResourceOwner is the bundle that stores the payload
	ResourceOwner Owner

	provider ContentProvider
	fs       afero.Fs
	logger   *slog.Logger
}

// Option represents a functional option for configuring a File
type Option func(*File)

// WithFileName sets the on-disk name. Empty keeps the resource name.
func WithFileName(name string) Option {
	return func(f *File) {
		f.FileName = name
	}
}

// WithFs sets the filesystem extraction writes to
func WithFs(fs afero.Fs) Option {
	return func(f *File) {
		if fs != nil {
			f.fs = fs
		}
	}
}

// WithLogger sets the logger for extraction progress and failures
func WithLogger(logger *slog.Logger) Option {
	return func(f *File) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a file for resourceName inside ref, reading bytes from provider.
func New(resourceName string, ref Reference, provider ContentProvider, opts ...Option) *File {
	f := &File{
		ResourceName:      resourceName,
		ResourceNamespace: ref.Namespace,
		ResourceOwner:     ref.Owner,
		provider:          provider,
		fs:                afero.NewOsFs(),
		logger:            discardLogger,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(f)
	}

	if f.FileName == "" {
		f.FileName = resourceName
	}
	return f
}

// Clone returns an independent copy sharing the same collaborators.
func (f *File) Clone() *File {
	c := *f
	return &c
}

// Reference returns the owner and namespace the file is addressed by.
func (f *File) Reference() Reference {
	return Reference{Owner: f.ResourceOwner, Namespace: f.ResourceNamespace}
}

// SetReference rebinds owner and namespace together.
func (f *File) SetReference(ref Reference) {
	f.ResourceOwner = ref.Owner
	f.ResourceNamespace = ref.Namespace
}

// ResourceString is the namespace-qualified key passed to the provider.
func (f *File) ResourceString() string {
	return f.ResourceNamespace + NamespaceSeparator + f.ResourceName
}

// AbsolutePath joins baseDirectory with the file name. The base must be an
// absolute path; the result is not cleaned and symlinks are not resolved.
func (f *File) AbsolutePath(baseDirectory string) (string, error) {
	if baseDirectory == "" {
		return "", fmt.Errorf("%w: base directory must not be empty", ErrInvalidArgument)
	}
	if !filepath.IsAbs(baseDirectory) {
		return "", fmt.Errorf("%w: base directory %q must be absolute", ErrInvalidArgument, baseDirectory)
	}
	return combine(baseDirectory, f.targetName("")), nil
}

// ContentStream opens the payload. A nil reader with a nil error means the
// provider holds no such resource. Callers must close the reader.
func (f *File) ContentStream(ctx context.Context) (io.ReadCloser, error) {
	if f.provider == nil {
		return nil, ErrNoProvider
	}

	rc, err := f.provider.Open(ctx, f.ResourceOwner, f.ResourceString())
	if errors.Is(err, ErrResourceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.ResourceString(), err)
	}
	return rc, nil
}

// ContentString reads the whole payload as text. A byte-order mark selects
// UTF-8, UTF-16 or UTF-32 in either byte order and is stripped; without one
// UTF-8 is assumed.
func (f *File) ContentString(ctx context.Context) (string, error) {
	rc, err := f.ContentStream(ctx)
	if err != nil {
		return "", err
	}
	if rc == nil {
		return "", f.notFound()
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	data, err := io.ReadAll(transform.NewReader(br, textDecoder(br)))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", f.ResourceString(), err)
	}
	return string(data), nil
}

// ContentBytes reads the raw payload.
func (f *File) ContentBytes(ctx context.Context) ([]byte, error) {
	rc, err := f.ContentStream(ctx)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, f.notFound()
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.ResourceString(), err)
	}
	return data, nil
}

// textDecoder picks a decoder from the leading bytes of br without consuming them.
// UTF-32LE is checked first since its mark starts with the UTF-16LE one.
func textDecoder(br *bufio.Reader) transform.Transformer {
	// A short or failing read leaves head shorter; the error resurfaces on the next Read
	head, _ := br.Peek(len(utf32LEBOM))
	switch {
	case bytes.HasPrefix(head, utf32LEBOM):
		return utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(head, utf32BEBOM):
		return utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder()
	default:
		return unicode.BOMOverride(unicode.UTF8.NewDecoder())
	}
}

func (f *File) notFound() error {
	return fmt.Errorf("%w: %s", ErrResourceNotFound, f.ResourceString())
}

// targetName picks the on-disk name: the override, then FileName, then ResourceName.
func (f *File) targetName(override string) string {
	switch {
	case override != "":
		return override
	case f.FileName != "":
		return f.FileName
	default:
		return f.ResourceName
	}
}

// combine joins like filepath.Join without cleaning the result. An absolute
// name replaces dir.
func combine(dir, name string) string {
	switch {
	case name == "":
		return dir
	case dir == "" || filepath.IsAbs(name):
		return name
	case os.IsPathSeparator(dir[len(dir)-1]):
		return dir + name
	default:
		return dir + string(filepath.Separator) + name
	}
}
