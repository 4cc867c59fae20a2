package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/taigrr/plyview/pkg/pointcloud"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	plyExt             = ".ply"
	metaSuffix         = ".meta.yaml"
	defaultDescription = "Point cloud model"
)

// fileNamespace scopes the stable file IDs derived from file names.
var fileNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("plyview/catalog"))

// ErrNotFound is returned when a file ID matches no model.
var ErrNotFound = errors.New("model not found")

// Store is a directory of .ply files. A file may have a sidecar
// "<file>.meta.yaml" holding a display name and description.
type Store struct {
	dir string
	log *zap.Logger
}

// sidecar is the optional per-model metadata file.
type sidecar struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// NewStore creates a store over dir.
func NewStore(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log}
}

// Dir returns the directory the store serves.
func (s *Store) Dir() string { return s.dir }

// FileID returns the stable identifier for a file name.
func FileID(name string) string {
	return uuid.NewSHA1(fileNamespace, []byte(name)).String()
}

// listed reports whether name is a file name the store would list.
func listed(name string) bool {
	return name != "" && name == filepath.Base(name) &&
		strings.EqualFold(filepath.Ext(name), plyExt)
}

type entry struct {
	name string
	info fs.FileInfo
}

func (s *Store) entries() ([]entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read models dir: %w", err)
	}
	var out []entry
	for _, d := range dirents {
		if d.IsDir() || !listed(d.Name()) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			s.log.Warn("skipping unreadable model", zap.String("file", d.Name()), zap.Error(err))
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		out = append(out, entry{name: d.Name(), info: info})
	}
	return out, nil
}

// List describes every model, newest first.
func (s *Store) List() ([]Model, error) {
	entries, err := s.entries()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return b.info.ModTime().Compare(a.info.ModTime())
	})

	models := make([]Model, 0, len(entries))
	for _, e := range entries {
		models = append(models, s.describe(e))
	}
	return models, nil
}

func (s *Store) describe(e entry) Model {
	m := Model{
		ID:          e.name,
		FileID:      FileID(e.name),
		Name:        strings.TrimSuffix(e.name, filepath.Ext(e.name)),
		Description: defaultDescription,
		FileSize:    humanize.Bytes(uint64(e.info.Size())),
		CreatedAt:   e.info.ModTime().UTC().Format(time.DateOnly),
	}

	if h, err := s.header(e.name); err != nil {
		s.log.Warn("could not read PLY header", zap.String("file", e.name), zap.Error(err))
	} else {
		m.Vertices = max(h.VertexCount(), 0)
		m.HasColors = h.HasColor()
		m.HasNormals = h.HasNormals()
	}

	if meta, ok := s.sidecar(e.name); ok {
		if meta.Name != "" {
			m.Name = meta.Name
		}
		if meta.Description != "" {
			m.Description = meta.Description
		}
	}
	return m
}

func (s *Store) header(name string) (pointcloud.Header, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return pointcloud.Header{}, err
	}
	defer f.Close()
	return pointcloud.ReadHeader(f)
}

func (s *Store) sidecar(name string) (sidecar, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+metaSuffix))
	if err != nil {
		return sidecar{}, false
	}
	var meta sidecar
	if err := yaml.Unmarshal(data, &meta); err != nil {
		s.log.Warn("ignoring malformed metadata", zap.String("file", name+metaSuffix), zap.Error(err))
		return sidecar{}, false
	}
	return meta, true
}

// Lookup resolves a file ID to a path. name is an optional hint (the
// model ID) checked before scanning the directory. Only files that List
// would report can be resolved.
func (s *Store) Lookup(fileID, name string) (string, error) {
	if listed(name) && FileID(name) == fileID {
		path := filepath.Join(s.dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	entries, err := s.entries()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if FileID(e.name) == fileID {
			return filepath.Join(s.dir, e.name), nil
		}
	}
	return "", ErrNotFound
}

// Info totals the files in the store.
func (s *Store) Info() (StorageInfo, error) {
	entries, err := s.entries()
	if err != nil {
		return StorageInfo{}, err
	}
	info := StorageInfo{Directory: s.dir, Files: len(entries)}
	for _, e := range entries {
		info.TotalBytes += e.info.Size()
	}
	info.TotalSize = humanize.Bytes(uint64(info.TotalBytes))
	return info, nil
}
