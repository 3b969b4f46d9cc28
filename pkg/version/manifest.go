package version

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed specs/*.yaml
var specFS embed.FS

// Manifest describes the capabilities of one Bolt protocol version.
type Manifest struct {
	Version     string       `yaml:"version"`
	Description string       `yaml:"description"`
	Messages    []MessageDef `yaml:"messages"`
}

// MessageDef is a message kind available in a protocol version.
type MessageDef struct {
	Name      string `yaml:"name"`
	Signature uint8  `yaml:"signature"`
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Manifest)
)

// LoadManifest loads the capability manifest for a protocol version.
func LoadManifest(v ProtocolVersion) (*Manifest, error) {
	key := v.String()

	cacheMu.RLock()
	if m, ok := cache[key]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	data, err := specFS.ReadFile("specs/" + key + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("manifest for version %q not found: %w", key, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %q: %w", key, err)
	}

	cacheMu.Lock()
	cache[key] = &m
	cacheMu.Unlock()

	return &m, nil
}

// AvailableManifests returns the version strings of all embedded manifests.
func AvailableManifests() ([]string, error) {
	entries, err := specFS.ReadDir("specs")
	if err != nil {
		return nil, fmt.Errorf("reading specs directory: %w", err)
	}

	var versions []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			versions = append(versions, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// Supports reports whether the manifest lists a message kind by name.
func (m *Manifest) Supports(name string) bool {
	for _, msg := range m.Messages {
		if msg.Name == name {
			return true
		}
	}
	return false
}

// MessageBySignature looks up a message kind by its signature byte.
func (m *Manifest) MessageBySignature(sig uint8) (MessageDef, bool) {
	for _, msg := range m.Messages {
		if msg.Signature == sig {
			return msg, true
		}
	}
	return MessageDef{}, false
}

// MessageNames returns the names of all message kinds, sorted.
func (m *Manifest) MessageNames() []string {
	out := make([]string, 0, len(m.Messages))
	for _, msg := range m.Messages {
		out = append(out, msg.Name)
	}
	sort.Strings(out)
	return out
}
