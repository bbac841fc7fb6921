package service

// DummyDigest exposes the digest compared for unknown login names.
func (s *AuthService) DummyDigest() []byte {
	return s.dummyDigest()
}
