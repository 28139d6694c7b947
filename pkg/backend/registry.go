package backend

import (
	"sort"
	"sync"

	"github.com/coursekit/aigateway/pkg/config"
)

// Notebook is a named, URL-addressable knowledge source.
type Notebook struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URL         string   `json:"url,omitempty"`
	Description string   `json:"description,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Active      bool     `json:"active"`
}

// Registry holds notebooks keyed by id and tracks the single active
// default. At most one notebook is active at any time: registering a
// new active notebook deactivates the previous one.
type Registry struct {
	mu        sync.RWMutex
	notebooks map[string]*Notebook
	activeID  string
}

func NewRegistry() *Registry {
	return &Registry{
		notebooks: make(map[string]*Notebook),
	}
}

// NewRegistryFromConfig seeds a registry from configuration. Later
// entries with Active set displace earlier ones as the default.
func NewRegistryFromConfig(configs []config.NotebookConfig) *Registry {
	r := NewRegistry()
	for _, nc := range configs {
		r.Register(&Notebook{
			ID:          nc.ID,
			Name:        nc.Name,
			URL:         nc.URL,
			Description: nc.Description,
			Topics:      nc.Topics,
			Active:      nc.Active,
		})
	}
	return r
}

// Register adds or replaces a notebook. When notebook.Active is set,
// any previously active notebook loses the flag.
func (r *Registry) Register(notebook *Notebook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *notebook
	if stored.Active {
		if r.activeID != "" && r.activeID != stored.ID {
			if prev, ok := r.notebooks[r.activeID]; ok {
				prev.Active = false
			}
		}
		r.activeID = stored.ID
	} else if r.activeID == stored.ID {
		// Re-registering the active notebook without the flag clears
		// the default.
		r.activeID = ""
	}
	r.notebooks[stored.ID] = &stored
}

// Get returns the notebook for id, or nil.
func (r *Registry) Get(id string) *Notebook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if nb, ok := r.notebooks[id]; ok {
		copied := *nb
		return &copied
	}
	return nil
}

// Active returns the current default notebook, or nil when none is
// marked active.
func (r *Registry) Active() *Notebook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if nb, ok := r.notebooks[r.activeID]; ok {
		copied := *nb
		return &copied
	}
	return nil
}

// Resolve maps an optional explicit id to a notebook. An empty id
// resolves to the active default. A nil result with a non-nil error
// means the caller must fail the operation.
func (r *Registry) Resolve(id string) (*Notebook, error) {
	if id == "" {
		if nb := r.Active(); nb != nil {
			return nb, nil
		}
		return nil, &NotebookNotFoundError{}
	}
	if nb := r.Get(id); nb != nil {
		return nb, nil
	}
	return nil, &NotebookNotFoundError{NotebookID: id}
}

// List returns all notebooks sorted by id.
func (r *Registry) List() []*Notebook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Notebook, 0, len(r.notebooks))
	for _, nb := range r.notebooks {
		copied := *nb
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
