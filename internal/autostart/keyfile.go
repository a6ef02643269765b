package autostart

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cwel/gsmd/internal/xerrors"
)

// keyfile is a minimal, write-order-preserving parser/encoder for the
// "[Desktop Entry]" group/key/value text format. No repo in the retrieval
// pack imports an INI/desktop-entry parsing library, so this is hand
// written on stdlib rather than pulled from a third-party dependency.
type keyfile struct {
	order  []string
	values map[string]string
}

func newKeyfile() *keyfile {
	return &keyfile{values: make(map[string]string)}
}

func parseKeyfile(r io.Reader) (*keyfile, error) {
	kf := newKeyfile()
	scanner := bufio.NewScanner(r)
	inEntryGroup := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inEntryGroup = line == "[Desktop Entry]"
			continue
		}
		if !inEntryGroup {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		kf.set(key, val)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Wrap(err, "scan keyfile")
	}
	return kf, nil
}

func (kf *keyfile) set(key, val string) {
	if _, ok := kf.values[key]; !ok {
		kf.order = append(kf.order, key)
	}
	kf.values[key] = val
}

func (kf *keyfile) get(key string) (string, bool) {
	v, ok := kf.values[key]
	return v, ok
}

func (kf *keyfile) getBool(key string, def bool) bool {
	v, ok := kf.values[key]
	if !ok {
		return def
	}
	return v == "true"
}

func (kf *keyfile) getInt(key string) (int, bool) {
	v, ok := kf.values[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (kf *keyfile) encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "[Desktop Entry]")
	for _, key := range kf.order {
		fmt.Fprintf(bw, "%s=%s\n", key, kf.values[key])
	}
	return bw.Flush()
}
