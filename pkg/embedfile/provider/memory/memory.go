package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/simple-embed/pkg/embedfile"
)

// Provider is an in-memory implementation of the embedfile.ContentProvider interface
type Provider struct {
	mu      sync.RWMutex
	objects map[embedfile.Owner]map[string][]byte
}

// New creates a new in-memory provider
func New() *Provider {
	return &Provider{
		objects: make(map[embedfile.Owner]map[string][]byte),
	}
}

// Put stores a copy of data under qualifiedName for owner
func (p *Provider) Put(owner embedfile.Owner, qualifiedName string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bundle, ok := p.objects[owner]
	if !ok {
		bundle = make(map[string][]byte)
		p.objects[owner] = bundle
	}
	bundle[qualifiedName] = bytes.Clone(data)
}

// Open returns a reader over the stored payload
func (p *Provider) Open(ctx context.Context, owner embedfile.Owner, qualifiedName string) (io.ReadCloser, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, exists := p.objects[owner][qualifiedName]
	if !exists {
		return nil, embedfile.ResourceNotFound(owner, qualifiedName)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes a payload
func (p *Provider) Delete(owner embedfile.Owner, qualifiedName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.objects[owner][qualifiedName]; !exists {
		return embedfile.ResourceNotFound(owner, qualifiedName)
	}

	delete(p.objects[owner], qualifiedName)
	if len(p.objects[owner]) == 0 {
		delete(p.objects, owner)
	}
	return nil
}
