package crash

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"patrol.module/internal/constants"
	"patrol.module/internal/errors"
)

// Entry describes one dump file on disk.
type Entry struct {
	ID   string    `json:"id" yaml:"id"`
	Kind Kind      `json:"kind" yaml:"kind"`
	Path string    `json:"path" yaml:"path"`
	Time time.Time `json:"time" yaml:"time"`
	Size int64     `json:"size" yaml:"size"`

	// Reason is the first line of what went wrong, when it could be read.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Store reads the dumps kept in a directory. Only files named
// <uuid>.dump or <uuid>.crash are considered.
type Store struct {
	Dir string
}

// NewStore returns a Store over dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// List returns the dumps in the directory, newest first. Empty crash files
// belong to processes that exited cleanly or are still running and are
// skipped. A missing directory yields no entries.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FromOSError(err, s.Dir)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		id, kind, ok := parseName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if kind == KindRuntime && info.Size() == 0 {
			continue
		}
		e := Entry{
			ID:   id,
			Kind: kind,
			Path: filepath.Join(s.Dir, de.Name()),
			Time: info.ModTime(),
			Size: info.Size(),
		}
		e.Kind, e.Reason = peek(e)
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Time.Equal(entries[j].Time) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Time.After(entries[j].Time)
	})
	return entries, nil
}

// Find resolves id, or a unique prefix of one, to an entry.
func (s *Store) Find(id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, errors.NewInvalidInputError(id, "dump id is required")
	}
	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}

	var match []Entry
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
		if strings.HasPrefix(e.ID, id) {
			match = append(match, e)
		}
	}
	switch len(match) {
	case 0:
		return Entry{}, errors.NewDumpNotFoundError(id)
	case 1:
		return match[0], nil
	default:
		return Entry{}, errors.NewInvalidInputError(id, "prefix matches more than one dump")
	}
}

// Load reads a dump. Runtime crash files are plain text and come back as a
// KindRuntime report whose Reason is the first line of the output.
func (s *Store) Load(id string) (*Report, error) {
	e, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, errors.FromOSError(err, e.Path)
	}

	if e.Kind == KindRuntime {
		return &Report{
			ID:         e.ID,
			Kind:       KindRuntime,
			Time:       e.Time.UTC(),
			Reason:     firstLine(data),
			Goroutines: string(data),
		}, nil
	}

	r, err := Decode(data)
	if err != nil {
		return nil, errors.NewDumpCorruptError(e.Path, err)
	}
	return r, nil
}

// Remove deletes one dump.
func (s *Store) Remove(id string) error {
	e, err := s.Find(id)
	if err != nil {
		return err
	}
	if err := os.Remove(e.Path); err != nil {
		return errors.FromOSError(err, e.Path)
	}
	return nil
}

// Clean deletes every dump except the files named in keep, and returns how
// many were removed.
func (s *Store) Clean(keep ...string) (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	skip := make(map[string]bool, len(keep))
	for _, k := range keep {
		skip[filepath.Clean(k)] = true
	}

	removed := 0
	for _, e := range entries {
		if skip[filepath.Clean(e.Path)] {
			continue
		}
		if err := os.Remove(e.Path); err != nil {
			return removed, errors.FromOSError(err, e.Path)
		}
		removed++
	}
	return removed, nil
}

func parseName(name string) (string, Kind, bool) {
	var kind Kind
	switch filepath.Ext(name) {
	case constants.DumpExt:
		kind = KindFault
	case constants.CrashExt:
		kind = KindRuntime
	default:
		return "", "", false
	}
	id := strings.TrimSuffix(name, filepath.Ext(name))
	if _, err := uuid.Parse(id); err != nil {
		return "", "", false
	}
	return id, kind, true
}

// peek reads just enough of a dump to describe it in a listing.
func peek(e Entry) (Kind, string) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return e.Kind, ""
	}
	if e.Kind == KindRuntime {
		return KindRuntime, firstLine(data)
	}
	r, err := Decode(data)
	if err != nil {
		return e.Kind, "unreadable dump"
	}
	return r.Kind, r.Reason
}

func firstLine(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}
