package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ProxyConfig describes an optional upstream HTTP proxy for all
// browser-driven and API traffic.
type ProxyConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// ServerURL returns the proxy address in scheme://host:port form as
// expected by Chrome's --proxy-server flag and http.Transport.
func (p *ProxyConfig) ServerURL() string {
	return fmt.Sprintf("http://%s:%d", p.Host, p.Port)
}

// HasAuth reports whether the proxy requires credentials.
func (p *ProxyConfig) HasAuth() bool {
	return p.Username != ""
}

// ParseProxy parses a proxy descriptor in host:port or
// user:pass@host:port form.
func ParseProxy(raw string) (*ProxyConfig, error) {
	p := &ProxyConfig{}

	server := raw
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		auth := raw[:at]
		server = raw[at+1:]
		user, pass, ok := strings.Cut(auth, ":")
		if !ok {
			return nil, fmt.Errorf("proxy auth must be user:pass, got %q", auth)
		}
		p.Username = user
		p.Password = pass
	}

	host, portStr, ok := strings.Cut(server, ":")
	if !ok || host == "" {
		return nil, fmt.Errorf("proxy server must be host:port, got %q", server)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid proxy port %q", portStr)
	}

	p.Host = host
	p.Port = port
	return p, nil
}

// Credentials holds the X/Twitter account used for login. Supplied once at
// process start and never mutated afterwards.
//
// Email is only required when the platform interposes an email-confirmation
// step during login; a login reaching that step without a configured email
// fails with ErrKindMissingCredential.
type Credentials struct {
	Username string       `toml:"username"`
	Password string       `toml:"password"`
	Email    string       `toml:"email"`
	Proxy    *ProxyConfig `toml:"proxy"`
}

// Validate checks that the mandatory fields are present.
func (c *Credentials) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("credentials: username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("credentials: password is required")
	}
	return nil
}
