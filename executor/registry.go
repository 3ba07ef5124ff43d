package executor

import (
	"sort"

	"github.com/hupe1980/assetflow/core"
)

// Registry maps agent types to executors. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	executors map[core.AgentType]core.Executor
}

// NewRegistry builds a registry from entries. The map is copied.
func NewRegistry(entries map[core.AgentType]core.Executor) *Registry {
	executors := make(map[core.AgentType]core.Executor, len(entries))
	for t, ex := range entries {
		if ex != nil {
			executors[t] = ex
		}
	}
	return &Registry{executors: executors}
}

// Options configures the built-in executors.
type Options struct {
	// MaxResults caps mailbox searches that do not set maxResults.
	MaxResults int
	// SummaryBodyLimit is the number of body runes kept in a digest.
	SummaryBodyLimit int
}

// DefaultRegistry registers the built-in executors for every core agent type.
func DefaultRegistry(messaging core.MessagingService, optFns ...func(o *Options)) *Registry {
	opts := Options{
		MaxResults:       DefaultMaxResults,
		SummaryBodyLimit: DefaultSummaryBodyLimit,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return NewRegistry(map[core.AgentType]core.Executor{
		core.AgentTypeEmailAccess:     NewEmailAccess(messaging, opts.MaxResults),
		core.AgentTypeEmailFetch:      NewEmailFetch(messaging),
		core.AgentTypeEmailSummarizer: NewSummarizer(opts.SummaryBodyLimit),
	})
}

// Lookup returns the executor registered for t or an ExecutorNotFound error.
func (r *Registry) Lookup(t core.AgentType) (core.Executor, error) {
	ex, ok := r.executors[t]
	if !ok {
		return nil, core.NewExecutorNotFound(t)
	}
	return ex, nil
}

// Types returns the registered agent types in lexical order.
func (r *Registry) Types() []core.AgentType {
	out := make([]core.AgentType, 0, len(r.executors))
	for t := range r.executors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
