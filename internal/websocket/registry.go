// internal/websocket/registry.go
package websocket

import (
	"sort"
	"sync"

	wstypes "taskhub-service/internal/domain/websocket"
)

// Registry is the in-memory channel membership table. All mutation goes
// through mu, so join, leave and remove on one connection never interleave.
type Registry struct {
	mu          sync.RWMutex
	channels    map[string]map[*Client]struct{}
	memberships map[*Client]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		channels:    make(map[string]map[*Client]struct{}),
		memberships: make(map[*Client]map[string]struct{}),
	}
}

// Add records an authenticated connection. It reports false if the
// connection was already present.
func (r *Registry) Add(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.memberships[c]; ok {
		return false
	}
	r.memberships[c] = make(map[string]struct{})
	return true
}

// Join adds c to channel. Joining twice is a no-op, as is joining with a
// connection that was never added or is already removed.
func (r *Registry) Join(c *Client, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.memberships[c]
	if !ok {
		return false
	}
	joined[channel] = struct{}{}

	members := r.channels[channel]
	if members == nil {
		members = make(map[*Client]struct{})
		r.channels[channel] = members
	}
	members[c] = struct{}{}
	return true
}

// Leave removes c from channel; absent memberships are ignored.
func (r *Registry) Leave(c *Client, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if joined, ok := r.memberships[c]; ok {
		delete(joined, channel)
	}
	r.leaveLocked(c, channel)
}

// Remove drops c from every channel it belongs to. It reports whether c
// was present, so only the first call for a connection has any effect.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.memberships[c]
	if !ok {
		return false
	}
	for channel := range joined {
		r.leaveLocked(c, channel)
	}
	delete(r.memberships, c)
	return true
}

func (r *Registry) leaveLocked(c *Client, channel string) {
	members, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.channels, channel)
	}
}

// MembersOf returns a snapshot of channel's members. Delivery iterates the
// snapshot without holding the lock.
func (r *Registry) MembersOf(channel string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.channels[channel]
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every registered connection.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.memberships))
	for c := range r.memberships {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.memberships)
}

// ConnectionsOf returns the connections joined to userID's channel.
func (r *Registry) ConnectionsOf(userID string) []*Client {
	return r.MembersOf(wstypes.UserChannel(userID))
}

// ChannelsOf returns the channels c belongs to, sorted.
func (r *Registry) ChannelsOf(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.memberships[c]
	out := make([]string, 0, len(joined))
	for channel := range joined {
		out = append(out, channel)
	}
	sort.Strings(out)
	return out
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Channels    int `json:"channels"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := 0
	for channel := range r.channels {
		if wstypes.IsUserChannel(channel) {
			users++
		}
	}
	return Stats{
		Connections: len(r.memberships),
		Users:       users,
		Channels:    len(r.channels),
	}
}
