// Package property implements the per-client XSMP property set: a small
// typed value store keyed by property name, plus typed accessors for the
// well-known vocabulary (SmProgram, SmRestartCommand, and friends).
package property

import "strconv"

// Type tags the shape of a Property's values, mirroring the three XSMP
// value kinds.
type Type int

const (
	// TypeByte holds exactly one raw byte (e.g. RestartStyleHint).
	TypeByte Type = iota
	// TypeByteString holds exactly one opaque byte string (e.g. ProcessID,
	// encoded as its decimal ASCII representation).
	TypeByteString
	// TypeByteStringList holds an ordered list of byte strings (e.g.
	// SmProgram, SmRestartCommand).
	TypeByteStringList
)

// Property is one client-declared XSMP property: a name from the fixed
// vocabulary, a type tag, and one or more opaque byte-string values.
type Property struct {
	Name   string
	Type   Type
	Values [][]byte
}

// Well-known XSMP property names.
const (
	SmProgram          = "SmProgram"
	SmRestartCommand   = "SmRestartCommand"
	SmDiscardCommand   = "SmDiscardCommand"
	SmRestartStyleHint = "SmRestartStyleHint"
	SmProcessID        = "SmProcessID"
	SmUserID           = "SmUserID"
	SmCloneCommand     = "SmCloneCommand"
	SmCurrentDirectory = "SmCurrentDirectory"

	// GsmDesktopFile is the non-standard property naming the on-disk
	// desktop-entry a client was originally launched from. Only file://
	// URIs are honored.
	GsmDesktopFile = "_GSM_DesktopFile"
)

// RestartStyleHint values, decoded from the single CARD8 value of
// SmRestartStyleHint.
const (
	RestartIfRunning   byte = 0
	RestartAnyway      byte = 1
	RestartImmediately byte = 2
	RestartNever       byte = 3
)

// Store holds a client's full property set, replaceable by name.
type Store struct {
	props map[string]Property
}

// NewStore returns an empty property store.
func NewStore() *Store {
	return &Store{props: make(map[string]Property)}
}

// Set replaces any existing property of the same name.
func (s *Store) Set(p Property) {
	s.props[p.Name] = p
}

// Delete removes the named property, if present.
func (s *Store) Delete(name string) {
	delete(s.props, name)
}

// Get returns the named property and whether it was present.
func (s *Store) Get(name string) (Property, bool) {
	p, ok := s.props[name]
	return p, ok
}

// All returns every property currently held, in no particular order.
func (s *Store) All() []Property {
	out := make([]Property, 0, len(s.props))
	for _, p := range s.props {
		out = append(out, p)
	}
	return out
}

// Program returns the decoded SmProgram argv list, or nil if absent.
func (s *Store) Program() []string {
	return s.stringList(SmProgram)
}

// RestartCommand returns the decoded SmRestartCommand argv list, or nil if
// absent.
func (s *Store) RestartCommand() []string {
	return s.stringList(SmRestartCommand)
}

// DiscardCommand returns the decoded SmDiscardCommand argv list, or nil if
// absent.
func (s *Store) DiscardCommand() []string {
	return s.stringList(SmDiscardCommand)
}

func (s *Store) stringList(name string) []string {
	p, ok := s.props[name]
	if !ok {
		return nil
	}
	out := make([]string, len(p.Values))
	for i, v := range p.Values {
		out[i] = string(v)
	}
	return out
}

// RestartStyleHint reads SmRestartStyleHint, defaulting to if-running when
// the property is absent or malformed.
func (s *Store) RestartStyleHint() byte {
	p, ok := s.props[SmRestartStyleHint]
	if !ok || len(p.Values) == 0 || len(p.Values[0]) == 0 {
		return RestartIfRunning
	}
	v := p.Values[0][0]
	if v > RestartNever {
		return RestartIfRunning
	}
	return v
}

// ProcessID reads SmProcessID as a decimal unsigned integer, returning 0 on
// overflow, trailing garbage, or absence. XSMP encodes process IDs as
// ARRAY8 decimal ASCII, not raw binary.
func (s *Store) ProcessID() uint32 {
	p, ok := s.props[SmProcessID]
	if !ok || len(p.Values) == 0 {
		return 0
	}
	n, err := strconv.ParseUint(string(p.Values[0]), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

// DesktopFileURI returns the raw _GSM_DesktopFile value, or "" if absent.
func (s *Store) DesktopFileURI() string {
	p, ok := s.props[GsmDesktopFile]
	if !ok || len(p.Values) == 0 {
		return ""
	}
	return string(p.Values[0])
}
