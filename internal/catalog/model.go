// Package catalog lists point-cloud models and retrieves their bytes, both
// as an HTTP client and as a server over a directory of .ply files.
package catalog

import (
	"errors"
	"fmt"
)

// Model describes one entry of the catalog listing.
type Model struct {
	ID          string `json:"id"`
	FileID      string `json:"fileId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Vertices    int    `json:"vertices"`
	FileSize    string `json:"fileSize"`
	CreatedAt   string `json:"createdAt"`
	HasColors   bool   `json:"hasColors"`
	HasNormals  bool   `json:"hasNormals"`
}

// ListResponse is the body of GET /api/list-models.
type ListResponse struct {
	Success bool    `json:"success"`
	Models  []Model `json:"models"`
	Count   int     `json:"count"`
	Error   string  `json:"error,omitempty"`
}

// StorageInfo summarizes the files the server can serve.
type StorageInfo struct {
	Directory  string `json:"directory"`
	Files      int    `json:"files"`
	TotalBytes int64  `json:"totalBytes"`
	TotalSize  string `json:"totalSize"`
}

// StorageResponse is the body of GET /api/storage-info.
type StorageResponse struct {
	Success bool         `json:"success"`
	Storage *StorageInfo `json:"storage,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Kind classifies a catalog failure.
type Kind int

const (
	// KindCatalog means the listing could not be loaded. It is shown to
	// the user.
	KindCatalog Kind = iota
	// KindRetrieval means a model's bytes could not be fetched. The viewer
	// recovers with generated geometry.
	KindRetrieval
)

func (k Kind) String() string {
	switch k {
	case KindCatalog:
		return "catalog"
	case KindRetrieval:
		return "retrieval"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by Client operations.
type Error struct {
	Kind   Kind
	Op     string
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error: " + e.Op
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a catalog Error of kind k.
func IsKind(err error, k Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == k
}
