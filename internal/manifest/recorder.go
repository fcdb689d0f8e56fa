package manifest

import "sync"

// Recorder is a concurrency-safe collector of manifest entries.
//
// Recording order does not matter; Manifest canonicalizes.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Record(e Entry) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// Snapshot returns a point-in-time copy of all recorded entries.
func (r *Recorder) Snapshot() []Entry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Manifest builds a canonical Manifest from the recorded entries.
func (r *Recorder) Manifest(configHash string, content, cssPlugins []string) Manifest {
	m := Manifest{
		ConfigHash: configHash,
		Entries:    r.Snapshot(),
		Content:    content,
		CSSPlugins: cssPlugins,
	}
	m.Canonicalize()
	return m
}
