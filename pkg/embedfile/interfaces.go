package embedfile

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Owner identifies the bundle that physically holds a payload. What an owner
// maps to (a mounted directory, a bucket prefix, a row key) is up to the
// provider.
type Owner string

// Reference addresses one logical module: the owner storing the payloads and
// the namespace they are grouped under. Both halves always move together.
type Reference struct {
	Owner     Owner
	Namespace string
}

// ContentProvider defines the interface for payload storage backends
type ContentProvider interface {
	// Open returns a reader for the payload stored under qualifiedName by owner.
	// Absence is reported with an error wrapping ErrResourceNotFound.
	Open(ctx context.Context, owner Owner, qualifiedName string) (io.ReadCloser, error)
}

// ChainProvider asks each provider in order and returns the first payload
// found. It lets an override directory sit in front of bundled assets.
type ChainProvider []ContentProvider

// Open implements ContentProvider
func (c ChainProvider) Open(ctx context.Context, owner Owner, qualifiedName string) (io.ReadCloser, error) {
	for _, provider := range c {
		if provider == nil {
			continue
		}
		rc, err := provider.Open(ctx, owner, qualifiedName)
		if errors.Is(err, ErrResourceNotFound) || (err == nil && rc == nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	return nil, ResourceNotFound(owner, qualifiedName)
}

// ResourceNotFound builds the absence error providers return from Open.
func ResourceNotFound(owner Owner, qualifiedName string) error {
	return fmt.Errorf("%w: %s (owner %s)", ErrResourceNotFound, qualifiedName, owner)
}
