package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/tendant/simple-embed/pkg/embedfile"
)

// Provider serves payloads from afero filesystems. Owners without an explicit
// mount are looked up as subdirectories of the root. Every filesystem is
// sealed read-only.
type Provider struct {
	mu     sync.RWMutex
	root   afero.Fs
	mounts map[embedfile.Owner]afero.Fs
}

// Config options for a directory-backed provider
type Config struct {
	BaseDir string // Directory holding one subdirectory per owner
}

// New creates a provider over root. root may be nil when every owner is mounted.
func New(root afero.Fs) *Provider {
	p := &Provider{
		mounts: make(map[embedfile.Owner]afero.Fs),
	}
	if root != nil {
		p.root = afero.NewReadOnlyFs(root)
	}
	return p
}

// NewDir creates a provider rooted at an existing directory on disk
func NewDir(config Config) (*Provider, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	osFs := afero.NewOsFs()
	exists, err := afero.DirExists(osFs, config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("base directory %s does not exist", config.BaseDir)
	}

	return New(afero.NewBasePathFs(osFs, config.BaseDir)), nil
}

// NewFromFS creates a provider rooted at an io/fs filesystem such as embed.FS
func NewFromFS(fsys iofs.FS) *Provider {
	return New(afero.FromIOFS{FS: fsys})
}

// Mount serves owner from fsys, with payloads at its top level
func (p *Provider) Mount(owner embedfile.Owner, fsys afero.Fs) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounts[owner] = afero.NewReadOnlyFs(fsys)
}

// MountDir serves owner from a directory on disk
func (p *Provider) MountDir(owner embedfile.Owner, dir string) error {
	osFs := afero.NewOsFs()
	exists, err := afero.DirExists(osFs, dir)
	if err != nil {
		return fmt.Errorf("failed to stat mount directory: %w", err)
	}
	if !exists {
		return fmt.Errorf("mount directory %s does not exist", dir)
	}

	p.Mount(owner, afero.NewBasePathFs(osFs, dir))
	return nil
}

// MountFS serves owner from an io/fs filesystem
func (p *Provider) MountFS(owner embedfile.Owner, fsys iofs.FS) {
	p.Mount(owner, afero.FromIOFS{FS: fsys})
}

// Open opens the payload file for owner
func (p *Provider) Open(ctx context.Context, owner embedfile.Owner, qualifiedName string) (io.ReadCloser, error) {
	if !validElem(qualifiedName) {
		return nil, fmt.Errorf("%w: resource name %q", embedfile.ErrInvalidArgument, qualifiedName)
	}

	fsys, name, err := p.resolve(owner, qualifiedName)
	if err != nil {
		return nil, err
	}

	file, err := fsys.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, embedfile.ResourceNotFound(owner, qualifiedName)
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, embedfile.ResourceNotFound(owner, qualifiedName)
	}

	return file, nil
}

func (p *Provider) resolve(owner embedfile.Owner, qualifiedName string) (afero.Fs, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if fsys, ok := p.mounts[owner]; ok {
		return fsys, qualifiedName, nil
	}
	if p.root == nil {
		return nil, "", embedfile.ResourceNotFound(owner, qualifiedName)
	}
	if !validElem(string(owner)) {
		return nil, "", fmt.Errorf("%w: owner %q", embedfile.ErrInvalidArgument, owner)
	}
	return p.root, path.Join(string(owner), qualifiedName), nil
}

// validElem accepts a single path element that cannot escape its directory
func validElem(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
