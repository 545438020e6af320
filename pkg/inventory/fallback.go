package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fallbackFile is the olt_config.yaml schema. The file lists static
// credentials for the fleet and is consulted only when the inventory
// service is unreachable.
type fallbackFile struct {
	Olts []fallbackEntry `yaml:"olts"`
}

type fallbackEntry struct {
	ID            string `yaml:"id"`
	Host          string `yaml:"host"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	SSHPort       int    `yaml:"ssh_port"`
	SNMPCommunity string `yaml:"snmp_community"`
}

func loadFallback(path string) (*fallbackFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback file: %w", err)
	}

	var fb fallbackFile
	if err := yaml.Unmarshal(data, &fb); err != nil {
		return nil, fmt.Errorf("parse fallback file: %w", err)
	}
	return &fb, nil
}

func (f *fallbackFile) credentials(oltID string) (*Credentials, bool) {
	for _, e := range f.Olts {
		if e.ID != oltID {
			continue
		}
		port := e.SSHPort
		if port == 0 {
			port = 22
		}
		return &Credentials{
			Host:          e.Host,
			Username:      e.Username,
			Password:      e.Password,
			SSHPort:       port,
			SNMPCommunity: e.SNMPCommunity,
		}, true
	}
	return nil, false
}
