package server

import (
	"sync"
	"time"

	"github.com/Humphrey-He/hcatalog/pkg/catalog"
)

type sessionItem struct {
	session  *catalog.Session
	lastSeen time.Time
}

// sessionRegistry keeps browse sessions by id and drops idle ones.
// sessionRegistry 按id保存浏览会话并清除空闲会话。
type sessionRegistry struct {
	mu     sync.Mutex
	items  map[string]*sessionItem
	ttl    time.Duration
	create func(rawQuery, id string) *catalog.Session
	now    func() time.Time
}

func newSessionRegistry(ttl time.Duration, create func(rawQuery, id string) *catalog.Session) *sessionRegistry {
	return &sessionRegistry{
		items:  make(map[string]*sessionItem),
		ttl:    ttl,
		create: create,
		now:    time.Now,
	}
}

// acquire returns the session with id, creating it at rawQuery when it does
// not exist. created reports whether a new session was made.
func (r *sessionRegistry) acquire(id, rawQuery string) (s *catalog.Session, created bool) {
	r.mu.Lock()
	now := r.now()
	expired := r.pruneLocked(now)
	if item, ok := r.items[id]; ok && id != "" {
		item.lastSeen = now
		r.mu.Unlock()
		closeSessions(expired)
		return item.session, false
	}

	s = r.create(rawQuery, id)
	r.items[s.ID()] = &sessionItem{session: s, lastSeen: now}
	r.mu.Unlock()
	closeSessions(expired)
	return s, true
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *sessionRegistry) pruneLocked(now time.Time) []*catalog.Session {
	if r.ttl <= 0 {
		return nil
	}
	var expired []*catalog.Session
	for id, item := range r.items {
		if now.Sub(item.lastSeen) > r.ttl {
			expired = append(expired, item.session)
			delete(r.items, id)
		}
	}
	return expired
}

// closeAll 关闭并移除所有会话
func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	sessions := make([]*catalog.Session, 0, len(r.items))
	for id, item := range r.items {
		sessions = append(sessions, item.session)
		delete(r.items, id)
	}
	r.mu.Unlock()
	closeSessions(sessions)
}

func closeSessions(sessions []*catalog.Session) {
	for _, s := range sessions {
		s.Close()
	}
}
