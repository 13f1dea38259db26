package transcription

import (
	"os"
	"strings"
	"sync"
)

// CredentialSource looks up a credential by environment variable name.
type CredentialSource func(key string) (string, bool)

// EnvCredentials reads credentials from the process environment.
func EnvCredentials(key string) (string, bool) {
	return os.LookupEnv(key)
}

// CredentialSpec declares one credential a provider needs.
type CredentialSpec struct {
	// Key names the credential inside Credentials (e.g. "api_key").
	Key string
	// Env is the variable consulted when Value is empty.
	Env string
	// Value is the injected credential. It wins over the source.
	Value string
	// Optional credentials never make the provider unavailable.
	Optional bool
}

// Credentials are the resolved values keyed by CredentialSpec.Key.
type Credentials map[string]string

// Get returns the credential for key.
func (c Credentials) Get(key string) string { return c[key] }

// credentialCache resolves and caches a provider's credentials. Resolution
// runs on every call so rotated secrets are picked up; a missing required
// credential clears the cache.
type credentialCache struct {
	specs  []CredentialSpec
	lookup CredentialSource

	mu    sync.RWMutex
	cache Credentials
}

func newCredentialCache(specs []CredentialSpec, lookup CredentialSource) *credentialCache {
	if lookup == nil {
		lookup = EnvCredentials
	}
	return &credentialCache{specs: specs, lookup: lookup}
}

func (c *credentialCache) resolve() (Credentials, bool) {
	resolved := make(Credentials, len(c.specs))
	for _, spec := range c.specs {
		value := strings.TrimSpace(spec.Value)
		if value == "" && spec.Env != "" {
			if v, ok := c.lookup(spec.Env); ok {
				value = strings.TrimSpace(v)
			}
		}
		if value == "" {
			if spec.Optional {
				continue
			}
			c.mu.Lock()
			c.cache = nil
			c.mu.Unlock()
			return nil, false
		}
		resolved[spec.Key] = value
	}

	c.mu.Lock()
	c.cache = resolved
	c.mu.Unlock()
	return resolved, true
}

// cached returns the credentials from the last successful resolve, or nil.
func (c *credentialCache) cached() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}
