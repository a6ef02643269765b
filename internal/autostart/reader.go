package autostart

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cwel/gsmd/internal/xerrors"
)

// Reader enumerates and parses existing desktop-entry files across a set
// of autostart directories, independent of any particular client — used
// by the capplet collaborator and by session restart to rediscover what
// was previously saved.
type Reader struct {
	Dirs []string
}

// NewReader returns a Reader scanning dirs.
func NewReader(dirs []string) *Reader {
	return &Reader{Dirs: dirs}
}

// List returns every parseable *.desktop entry across Dirs. Entries that
// fail to parse are skipped rather than failing the whole scan.
func (r *Reader) List() ([]*Entry, error) {
	var out []*Entry
	for _, dir := range r.Dirs {
		des, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, xerrors.Wrapf(err, "read autostart directory %s", dir)
		}
		for _, de := range des {
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".desktop") {
				continue
			}
			path := filepath.Join(dir, de.Name())
			f, err := os.Open(path)
			if err != nil {
				continue
			}
			kf, err := parseKeyfile(f)
			f.Close()
			if err != nil {
				continue
			}
			out = append(out, entryFromKeyfile(path, kf))
		}
	}
	return out, nil
}

// ByStartupID returns the entry whose X-GNOME-Autostart-startup-id
// matches id, or nil if none does.
func (r *Reader) ByStartupID(id string) (*Entry, error) {
	entries, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.StartupID == id {
			return e, nil
		}
	}
	return nil, nil
}
