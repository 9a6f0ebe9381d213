package engine

import (
	"time"

	"github.com/use-agent/webkeep/cache"
)

// maxDomains bounds how many hosts are remembered; the oldest goes first.
const maxDomains = 10_000

// DomainMemory remembers which engine last won the race for each host, so
// later fetches from that host go straight to it. Entries expire after ttl.
type DomainMemory struct {
	winners *cache.Cache[string]
}

// NewDomainMemory creates a DomainMemory. Call Stop to release its sweeper.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	return &DomainMemory{winners: cache.New[string](maxDomains, ttl)}
}

// Get returns the remembered engine for domain, or "" if unknown or expired.
func (dm *DomainMemory) Get(domain string) string {
	name, _ := dm.winners.Get(domain)
	return name
}

// Set records the winning engine for domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	dm.winners.Set(domain, engineName)
}

// Delete forgets domain.
func (dm *DomainMemory) Delete(domain string) {
	dm.winners.Delete(domain)
}

// Stop ends background pruning. Safe to call twice.
func (dm *DomainMemory) Stop() {
	dm.winners.Stop()
}
