// Package datasource discovers, loads and watches the band data shown by
// tlv: YAML band files and clockmail databases.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/daviddao/tlview/pkg/model"
)

const (
	defaultBands = ".tlview/bands.yaml"
	defaultDB    = ".clockmail/clockmail.db"
)

// ErrNotFound is returned when discovery finds nothing.
var ErrNotFound = errors.New("no data source found")

// Source produces band specs.
type Source interface {
	// Name identifies the source in logs and summaries.
	Name() string
	// Path is the file to watch for changes.
	Path() string
	Load(ctx context.Context) ([]model.BandSpec, error)
}

// DiscoverBands finds a band file.
// Priority: TLV_BANDS env var > .tlview/bands.yaml in CWD > walk up parents.
func DiscoverBands() (string, error) {
	return discover("TLV_BANDS", defaultBands)
}

// DiscoverClockmail finds a clockmail database.
// Priority: CLOCKMAIL_DB env var > .clockmail/clockmail.db in CWD > walk up parents.
func DiscoverClockmail() (string, error) {
	return discover("CLOCKMAIL_DB", defaultDB)
}

func discover(envKey, rel string) (string, error) {
	if env := os.Getenv(envKey); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env, nil
		}
		return "", fmt.Errorf("%s=%q: %w", envKey, env, os.ErrNotExist)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, rel)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%w (looked for %s)", ErrNotFound, rel)
}

// Discover returns every source it can find. It fails only when there is
// none at all.
func Discover() ([]Source, error) {
	var sources []Source
	var errs []error
	if path, err := DiscoverBands(); err == nil {
		sources = append(sources, &FileSource{File: path})
	} else {
		errs = append(errs, err)
	}
	if path, err := DiscoverClockmail(); err == nil {
		sources = append(sources, &ClockmailSource{DB: path})
	} else {
		errs = append(errs, err)
	}
	if len(sources) == 0 {
		return nil, errors.Join(errs...)
	}
	return sources, nil
}

// BandFile is the on-disk layout of a band file.
type BandFile struct {
	Bands []model.BandSpec `yaml:"bands"`
}

// ParseBands decodes a band file. Unknown keys are an error.
func ParseBands(data []byte) ([]model.BandSpec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f BandFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode bands: %w", err)
	}
	for i, b := range f.Bands {
		if b.Type == "" {
			return nil, fmt.Errorf("band %d: missing type", i)
		}
	}
	return f.Bands, nil
}

// FileSource reads bands from a YAML file.
type FileSource struct {
	File string
}

func (s *FileSource) Name() string { return "file:" + filepath.Base(s.File) }
func (s *FileSource) Path() string { return s.File }

func (s *FileSource) Load(ctx context.Context) ([]model.BandSpec, error) {
	data, err := os.ReadFile(s.File)
	if err != nil {
		return nil, err
	}
	bands, err := ParseBands(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.File, err)
	}
	return bands, nil
}
