// Package autostart implements the save/restore codec: converting a
// client's property set into a desktop-entry record under an autostart
// directory, and reading existing entries back (used by the out-of-scope
// capplet collaborator and by session restart). Files are written
// atomically (temp file + rename), the same pattern the teacher repo uses
// for its session and daemon-state persistence.
package autostart

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cwel/gsmd/internal/property"
	"github.com/cwel/gsmd/internal/shellquote"
	"github.com/cwel/gsmd/internal/xerrors"
)

// Entry is an in-memory desktop-entry record, either freshly synthesized
// or seeded from an existing on-disk file.
type Entry struct {
	Path           string // file it was read from / will be written to
	Name           string
	Comment        string
	Icon           string
	Type           string
	StartupNotify  bool
	Exec           string
	DiscardCommand string
	StartupID      string // X-GNOME-Autostart-startup-id
	Delay          int    // X-MATE-Autostart-Delay, 0 if absent
	hasDiscard     bool
	hasDelay       bool
}

const (
	keyName          = "Name"
	keyComment       = "Comment"
	keyIcon          = "Icon"
	keyType          = "Type"
	keyStartupNotify = "StartupNotify"
	keyExec          = "Exec"
	keyDiscard       = "X-GNOME-Autostart-discard-command"
	keyStartupID     = "X-GNOME-Autostart-startup-id"
	keyDelay         = "X-MATE-Autostart-Delay"
)

func entryFromKeyfile(path string, kf *keyfile) *Entry {
	e := &Entry{Path: path}
	e.Name, _ = kf.get(keyName)
	e.Comment, _ = kf.get(keyComment)
	e.Icon, _ = kf.get(keyIcon)
	e.Type, _ = kf.get(keyType)
	e.StartupNotify = kf.getBool(keyStartupNotify, true)
	e.Exec, _ = kf.get(keyExec)
	if d, ok := kf.get(keyDiscard); ok {
		e.DiscardCommand = d
		e.hasDiscard = true
	}
	e.StartupID, _ = kf.get(keyStartupID)
	if n, ok := kf.getInt(keyDelay); ok {
		e.Delay = n
		e.hasDelay = true
	}
	return e
}

func (e *Entry) toKeyfile() *keyfile {
	kf := newKeyfile()
	kf.set(keyName, e.Name)
	if e.Comment != "" {
		kf.set(keyComment, e.Comment)
	}
	if e.Icon != "" {
		kf.set(keyIcon, e.Icon)
	}
	kf.set(keyType, "Application")
	kf.set(keyStartupNotify, boolStr(e.StartupNotify))
	kf.set(keyExec, e.Exec)
	kf.set(keyStartupID, e.StartupID)
	if e.hasDiscard {
		kf.set(keyDiscard, e.DiscardCommand)
	}
	if e.hasDelay {
		kf.set(keyDelay, strconv.Itoa(e.Delay))
	}
	return kf
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Codec resolves a client's property set into an Entry and persists it to
// one of a configured set of autostart directories.
type Codec struct {
	// Dirs lists autostart directories, highest priority first. Dirs[0]
	// is where synthesized and resolved entries are written.
	Dirs []string
}

// NewCodec returns a Codec writing to and searching dirs.
func NewCodec(dirs []string) *Codec {
	return &Codec{Dirs: dirs}
}

// SaveClient implements client.SaveCodec: produces an entry from props
// and writes it, unless the restart hint is never or RestartCommand is
// absent, in which case it silently reports wrote=false.
func (c *Codec) SaveClient(startupID string, props *property.Store) (wrote bool, err error) {
	entry, err := c.Encode(startupID, props)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	if err := c.Write(entry); err != nil {
		return false, err
	}
	return true, nil
}

// Encode implements §4.3's entry-production rule. It returns (nil, nil)
// when the client's restart hint is never or it has no RestartCommand —
// the "no entry" case save() reports silently. Keyfile read errors while
// resolving an existing file are swallowed (the property is effectively
// malformed data from a peer's perspective and falls back to synthesis),
// matching §7's "parse failures are ignored" propagation policy.
func (c *Codec) Encode(startupID string, props *property.Store) (*Entry, error) {
	if props.RestartStyleHint() == property.RestartNever {
		return nil, nil
	}
	restartCmd := props.RestartCommand()
	if len(restartCmd) == 0 {
		return nil, nil
	}

	entry := c.resolveExisting(props)
	if entry == nil {
		entry = c.synthesize(startupID, props)
	} else if len(c.Dirs) > 0 {
		entry.Path = filepath.Join(c.Dirs[0], filepath.Base(entry.Path))
	}

	entry.StartupID = startupID
	entry.Exec = shellquote.Join(restartCmd)
	if discard := props.DiscardCommand(); len(discard) > 0 {
		entry.DiscardCommand = shellquote.Join(discard)
		entry.hasDiscard = true
	}
	return entry, nil
}

// resolveExisting implements the two on-disk lookup tiers: _GSM_DesktopFile
// (file:// only) then executable match across Dirs.
func (c *Codec) resolveExisting(props *property.Store) *Entry {
	if uri := props.DesktopFileURI(); uri != "" {
		if path, ok := fileURIPath(uri); ok {
			if entry, err := c.readEntry(path); err == nil {
				return entry
			}
		}
		// Non-file:// URIs, or a file:// URI that doesn't resolve, are
		// rejected rather than trusted — fall through to executable
		// match / synthesis.
	}

	program := props.Program()
	if len(program) == 0 {
		return nil
	}
	exe := filepath.Base(program[0])

	for _, dir := range c.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, de := range entries {
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".desktop") {
				continue
			}
			path := filepath.Join(dir, de.Name())
			entry, err := c.readEntry(path)
			if err != nil {
				continue
			}
			if execMatches(entry.Exec, exe) {
				return entry
			}
		}
	}
	return nil
}

func execMatches(exec, exe string) bool {
	fields := strings.Fields(exec)
	if len(fields) == 0 {
		return false
	}
	return filepath.Base(strings.Trim(fields[0], "'\"")) == exe
}

func (c *Codec) readEntry(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(err, "open desktop entry")
	}
	defer f.Close()
	kf, err := parseKeyfile(f)
	if err != nil {
		return nil, err
	}
	return entryFromKeyfile(path, kf), nil
}

// synthesize builds a fresh entry per §4.3 when no on-disk match exists.
// The placeholder name has no translation layer behind it (this daemon
// carries no i18n), matching the literal-English fallback decided in
// DESIGN.md.
func (c *Codec) synthesize(startupID string, props *property.Store) *Entry {
	name := "Unknown application"
	if program := props.Program(); len(program) > 0 && program[0] != "" {
		name = program[0]
	}

	writeDir := "."
	if len(c.Dirs) > 0 {
		writeDir = c.Dirs[0]
	}
	fileName := fmt.Sprintf("%s-%s.desktop", sanitizeFileName(name), uuid.NewString())

	return &Entry{
		Path:          filepath.Join(writeDir, fileName),
		Name:          name,
		Comment:       fmt.Sprintf("Client %s which was automatically saved", startupID),
		Icon:          "system-run",
		Type:          "Application",
		StartupNotify: true,
	}
}

func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "client"
	}
	return b.String()
}

// fileURIPath resolves a file:// URI to a local path, rejecting any other
// scheme per the "accept only file:// URIs" rule.
func fileURIPath(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return u.Path, true
}

// Write atomically persists entry to its Path at mode 0600, per §6
// "Persisted layout". Uses the same write-to-temp-then-rename pattern the
// teacher repo uses for session and daemon-state files.
func (c *Codec) Write(entry *Entry) error {
	if entry.Path == "" {
		return xerrors.New("autostart: entry has no path")
	}
	if err := os.MkdirAll(filepath.Dir(entry.Path), 0700); err != nil {
		return xerrors.Wrap(err, "create autostart directory")
	}

	tmpPath := entry.Path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return xerrors.Wrap(err, "create temp entry")
	}
	if err := entry.toKeyfile().encode(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return xerrors.Wrap(err, "encode entry")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return xerrors.Wrap(err, "close temp entry")
	}
	if err := os.Rename(tmpPath, entry.Path); err != nil {
		os.Remove(tmpPath)
		return xerrors.Wrap(err, "rename temp entry")
	}
	return nil
}
