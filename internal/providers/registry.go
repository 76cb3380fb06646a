// Package providers maps provider ids to the closures the job runner needs.
// Adding a provider is a data addition to the registry, not a new branch at
// the call sites.
package providers

import (
	"fmt"
	"sort"

	"daygen/internal/domain"
	"daygen/internal/genjob"
)

// Options is the generic input every provider adapter accepts. Extra carries
// provider-specific fields (size, seed, negative prompt) as an opaque
// pass-through payload.
type Options struct {
	Prompt     string
	Model      string
	References []string
	AvatarID   string
	OwnerID    string
	Extra      map[string]any
}

// Capabilities flags the optional operations a provider implements. Missing
// capabilities are rejected synchronously with ErrUnsupportedOperation.
type Capabilities struct {
	Edit     bool
	Reframe  bool
	Upscale  bool
	Describe bool
}

// Entry adapts one provider to the runner's generic contract.
type Entry struct {
	ID           string
	Media        domain.MediaType
	Metered      bool
	Capabilities Capabilities

	// BuildRequest produces the submit envelope for the generic options.
	BuildRequest func(opts Options) (*genjob.SubmitRequest, error)

	// ParseImmediate interprets a synchronous submit payload. ok=false means
	// the job needs polling.
	ParseImmediate func(opts Options, resp *genjob.SubmitResponse) ([]domain.GalleryItem, bool)

	// ParseJobResult interprets the terminal snapshot of an asynchronous job.
	ParseJobResult func(opts Options, snap domain.JobSnapshot, resp *genjob.SubmitResponse) ([]domain.GalleryItem, error)
}

// Registry holds the provider strategy table.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry returns a registry populated with the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]Entry)}
	for _, entry := range builtinImageEntries() {
		r.entries[entry.ID] = entry
	}
	for _, entry := range builtinVideoEntries() {
		r.entries[entry.ID] = entry
	}
	return r
}

// Register adds or replaces an entry.
func (r *Registry) Register(entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("providers: entry id is required")
	}
	if entry.BuildRequest == nil {
		return fmt.Errorf("providers: entry %q needs a request builder", entry.ID)
	}
	r.entries[entry.ID] = entry
	return nil
}

// Lookup finds the entry for a provider id.
func (r *Registry) Lookup(id string) (Entry, bool) {
	entry, ok := r.entries[id]
	return entry, ok
}

// IDs lists registered provider ids in stable order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
