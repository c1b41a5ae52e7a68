package imapclient

import (
	"github.com/aerc-mail/imapworker"
)

// Callback is invoked when a command completes.
type Callback func(status imapworker.Status, text string)

// untaggedTag is the registry key of the greeting handler.
const untaggedTag = "*"

// Registry maps outstanding command tags to their completion callbacks.
type Registry struct {
	m map[string]Callback
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Callback)}
}

// Register adds a callback for a tag. It panics if the tag is already
// outstanding: tags are never reused.
func (r *Registry) Register(tag string, cb Callback) {
	if _, ok := r.m[tag]; ok {
		panic("imapclient: tag registered twice: " + tag)
	}
	r.m[tag] = cb
}

// Resolve removes and returns the callback registered for a tag.
func (r *Registry) Resolve(tag string) (Callback, bool) {
	cb, ok := r.m[tag]
	if ok {
		delete(r.m, tag)
	}
	return cb, ok
}

// Pending returns the number of outstanding tagged commands.
func (r *Registry) Pending() int {
	n := len(r.m)
	if _, ok := r.m[untaggedTag]; ok {
		n--
	}
	return n
}

// Abandon drops all entries without invoking them.
func (r *Registry) Abandon() {
	r.m = make(map[string]Callback)
}
