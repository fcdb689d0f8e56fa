// Package manifest defines the canonical, byte-stable record of an emitted
// build.
//
// A Manifest lists every emitted file with its source and content digest,
// plus the content scan results for the external CSS tool. Two builds of the
// same inputs produce identical manifest bytes: entries are sorted, empty
// lists are omitted, and nothing time- or host-dependent is recorded.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Manifest is the record of one build.
type Manifest struct {
	// ConfigHash is the fingerprint of the build configuration.
	ConfigHash string

	Entries []Entry

	// Content is the resolved content scan file list.
	Content []string

	// CSSPlugins is copied from the configuration.
	CSSPlugins []string
}

// Entry is a single emitted file.
type Entry struct {
	// Output is the path relative to the output directory.
	Output string

	// Source is the path relative to the stage directory.
	Source string

	// Kind is the artifact kind ("entry-script", "dependent-script", "asset").
	Kind string

	// Digest is the BLAKE3 hex digest of the file content. Empty in plan-only
	// manifests.
	Digest string
}

// Validate checks basic invariants and returns a descriptive error.
func (m *Manifest) Validate() error {
	if m == nil {
		return errors.New("manifest is nil")
	}
	if m.ConfigHash == "" {
		return errors.New("configHash is required")
	}
	seen := make(map[string]int, len(m.Entries))
	for i, e := range m.Entries {
		if e.Output == "" {
			return fmt.Errorf("entries[%d].output is required", i)
		}
		if e.Source == "" {
			return fmt.Errorf("entries[%d].source is required", i)
		}
		if e.Kind == "" {
			return fmt.Errorf("entries[%d].kind is required", i)
		}
		if j, ok := seen[e.Output]; ok {
			return fmt.Errorf("entries[%d] and entries[%d] share output %q", j, i, e.Output)
		}
		seen[e.Output] = i
	}
	return nil
}

// Canonicalize sorts entries by output path and the string lists
// lexicographically. Empty lists become nil.
func (m *Manifest) Canonicalize() {
	if m == nil {
		return
	}
	if len(m.Entries) == 0 {
		m.Entries = nil
	} else {
		sort.SliceStable(m.Entries, func(i, j int) bool {
			a, b := m.Entries[i], m.Entries[j]
			if a.Output != b.Output {
				return a.Output < b.Output
			}
			return a.Source < b.Source
		})
	}
	m.Content = sortedCopy(m.Content)
	m.CSSPlugins = sortedCopy(m.CSSPlugins)
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

// CanonicalJSON returns the canonical encoding of m without mutating it.
func (m Manifest) CanonicalJSON() ([]byte, error) {
	c := Manifest{
		ConfigHash: m.ConfigHash,
		Entries:    append([]Entry(nil), m.Entries...),
		Content:    m.Content,
		CSSPlugins: m.CSSPlugins,
	}
	c.Canonicalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&c)
}

// Hash returns the BLAKE3 hex digest of the canonical JSON.
func (m Manifest) Hash() (string, error) {
	b, err := m.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeHash(b), nil
}

// Lookup returns the entry emitted for output, if any.
func (m *Manifest) Lookup(output string) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Output == output {
			return e, true
		}
	}
	return Entry{}, false
}

// MarshalJSON fixes field order and omits absent optional fields.
func (m Manifest) MarshalJSON() ([]byte, error) {
	if m.ConfigHash == "" {
		return nil, errors.New("configHash is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"configHash":`)
	writeString(&buf, m.ConfigHash)

	buf.WriteString(`,"entries":[`)
	for i := range m.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(m.Entries[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteByte(']')

	writeList(&buf, "content", m.Content)
	writeList(&buf, "cssPlugins", m.CSSPlugins)

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON fixes field order; digest is omitted when empty.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(`"output":`)
	writeString(&buf, e.Output)
	buf.WriteString(`,"source":`)
	writeString(&buf, e.Source)
	buf.WriteString(`,"kind":`)
	writeString(&buf, e.Kind)
	if e.Digest != "" {
		buf.WriteString(`,"digest":`)
		writeString(&buf, e.Digest)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the canonical encoding.
func (m *Manifest) UnmarshalJSON(b []byte) error {
	var raw struct {
		ConfigHash string   `json:"configHash"`
		Entries    []Entry  `json:"entries"`
		Content    []string `json:"content"`
		CSSPlugins []string `json:"cssPlugins"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Manifest{
		ConfigHash: raw.ConfigHash,
		Entries:    raw.Entries,
		Content:    raw.Content,
		CSSPlugins: raw.CSSPlugins,
	}
	return nil
}

// UnmarshalJSON accepts the canonical encoding.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var raw struct {
		Output string `json:"output"`
		Source string `json:"source"`
		Kind   string `json:"kind"`
		Digest string `json:"digest"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Entry(raw)
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func writeList(buf *bytes.Buffer, key string, list []string) {
	if len(list) == 0 {
		return
	}
	buf.WriteString(`,"` + key + `":[`)
	for i, s := range list {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, s)
	}
	buf.WriteByte(']')
}
