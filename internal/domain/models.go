package domain

import (
	"net"
	"strconv"
)

// Manifest describes the fleet and the defaults shared by every server.
type Manifest struct {
	Username *string        `yaml:"username" json:"username,omitempty"`
	Port     *int           `yaml:"port" json:"port,omitempty"`
	Servers  []ServerRecord `yaml:"servers" json:"servers"`
}

// ServerRecord is a raw manifest entry. Nil fields fall back to the manifest defaults.
type ServerRecord struct {
	Hostname   string   `yaml:"hostname" json:"hostname"`
	Username   *string  `yaml:"username,omitempty" json:"username,omitempty"`
	Port       *int     `yaml:"port,omitempty" json:"port,omitempty"`
	Categories []string `yaml:"categories" json:"categories"`
}

// Server is a fully resolved manifest entry.
// An empty Principal or a zero Port means neither the record nor the
// manifest supplied one; the connection layer rejects such servers.
type Server struct {
	Hostname   string   `yaml:"hostname" json:"hostname"`
	Principal  string   `yaml:"principal,omitempty" json:"principal,omitempty"`
	Port       int      `yaml:"port,omitempty" json:"port,omitempty"`
	Categories []string `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// Address returns host:port for dialing.
func (s Server) Address() string {
	return net.JoinHostPort(s.Hostname, strconv.Itoa(s.Port))
}
