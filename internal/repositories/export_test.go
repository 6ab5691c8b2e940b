package repositories

// DeleteUser drops a user without touching their orders or ledger.
func (s *MemoryStore) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}
