package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether /.dockerenv exists. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps loopback hosts to host.docker.internal when
// running inside a container, so PostgreSQL and Redis on the host stay reachable.
func ResolveHostForDocker(host string) string {
	return resolveHost(host, IsRunningInDocker())
}

func resolveHost(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}

// applyDockerHosts rewrites the database and Redis hosts in place.
func (c *Config) applyDockerHosts(inDocker bool) {
	c.Database.Host = resolveHost(c.Database.Host, inDocker)
	if c.Redis.Enabled() {
		c.Redis.Host = resolveHost(c.Redis.Host, inDocker)
	}
}
