package chathub

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"
)

type group struct {
	mu      sync.Mutex
	members map[string]Client
	// dead is set once the group has been emptied and dropped from the registry.
	dead bool
}

// Registry tracks which connections are subscribed to which groups.
//
// The registry lock guards the group table and the per-connection index; each
// group's own lock guards its member set and is held for the whole of a fanout,
// so fanouts to one group reach every member in the order they were issued.
// Lock order is registry then group.
type Registry struct {
	mu          sync.RWMutex
	groups      map[string]*group
	memberships map[string]map[string]struct{}
	log         *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		groups:      make(map[string]*group),
		memberships: make(map[string]map[string]struct{}),
		log:         log,
	}
}

// Join subscribes c to the named group, creating the group on first use.
// Joining twice is a no-op.
func (r *Registry) Join(name string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok {
		g = &group{members: make(map[string]Client)}
		r.groups[name] = g
	}

	g.mu.Lock()
	g.members[c.ID()] = c
	g.mu.Unlock()

	set, ok := r.memberships[c.ID()]
	if !ok {
		set = make(map[string]struct{})
		r.memberships[c.ID()] = set
	}
	set[name] = struct{}{}
}

// Leave unsubscribes c from the named group. Leaving a group c is not in is a no-op.
func (r *Registry) Leave(name string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(name, c.ID())
	if set, ok := r.memberships[c.ID()]; ok {
		delete(set, name)
		if len(set) == 0 {
			delete(r.memberships, c.ID())
		}
	}
}

// Purge removes c from every group it belongs to and returns how many it left.
func (r *Registry) Purge(c Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.memberships[c.ID()]
	for name := range set {
		r.removeLocked(name, c.ID())
	}
	delete(r.memberships, c.ID())
	return len(set)
}

func (r *Registry) removeLocked(name, id string) {
	g, ok := r.groups[name]
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.members, id)
	if len(g.members) == 0 {
		g.dead = true
		delete(r.groups, name)
	}
}

// withGroup runs fn with the live group locked. It does nothing if the group
// does not exist.
func (r *Registry) withGroup(name string, fn func(g *group)) {
	for {
		r.mu.RLock()
		g := r.groups[name]
		r.mu.RUnlock()
		if g == nil {
			return
		}

		g.mu.Lock()
		if g.dead {
			// Dropped between lookup and lock; look again.
			g.mu.Unlock()
			continue
		}
		fn(g)
		g.mu.Unlock()
		return
	}
}

// Members returns a point-in-time snapshot of the group's connections.
func (r *Registry) Members(name string) []Client {
	var members []Client
	r.withGroup(name, func(g *group) {
		members = lo.Values(g.members)
	})
	return members
}

// Size returns the number of connections subscribed to the group.
func (r *Registry) Size(name string) int {
	size := 0
	r.withGroup(name, func(g *group) {
		size = len(g.members)
	})
	return size
}

// Groups returns the sorted names of the groups c is subscribed to.
func (r *Registry) Groups(c Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.memberships[c.ID()])
	slices.Sort(names)
	return names
}

// Fanout delivers payload to every current member of the group and returns the
// number of successful deliveries. A failed delivery is logged and not retried.
func (r *Registry) Fanout(name string, payload []byte) int {
	delivered := 0
	r.withGroup(name, func(g *group) {
		for id, c := range g.members {
			if c.Deliver(payload) {
				delivered++
				continue
			}
			r.log.Debug("Delivery dropped", "group", name, "conn", id)
		}
	})
	return delivered
}
