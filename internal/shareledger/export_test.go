package shareledger

// Tamper lets tests corrupt a stored entry in place.
func (l *MemoryLedger) Tamper(index int, fn func(*Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.entries[index])
}
