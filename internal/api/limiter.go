package api

import (
	"sync"
)

// convertLimiter tracks concurrent conversions per IP and globally. A
// runaway client uploading in a loop would otherwise tie up every worker.
type convertLimiter struct {
	mu       sync.Mutex
	active   map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newConvertLimiter(maxPerIP int) *convertLimiter {
	return &convertLimiter{
		active:   make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: 64, // Default global cap.
	}
}

// acquire attempts to register a new conversion for the given IP.
// Returns false if the IP or global limit has been reached.
func (l *convertLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.active[ip] >= l.maxPerIP {
		return false
	}

	l.active[ip]++
	l.total++
	return true
}

// release decrements the conversion count for the given IP.
func (l *convertLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active[ip]--
	l.total--
	if l.active[ip] <= 0 {
		delete(l.active, ip)
	}
}

// count returns the number of active conversions for the given IP.
func (l *convertLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[ip]
}
