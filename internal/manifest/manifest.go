// Package manifest reads event manifests: YAML (or JSON) documents that
// describe a MISP event to create, its tags and its attributes.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

// Manifest is one event description.
type Manifest struct {
	Org            string           `yaml:"org"`
	Name           string           `yaml:"name"`
	PublisherEmail string           `yaml:"publisher_email"`
	Publish        bool             `yaml:"publish"`
	Distribution   *int             `yaml:"distribution"`
	Tags           []int            `yaml:"tags"`
	LocalTags      bool             `yaml:"local_tags"`
	Reconcile      bool             `yaml:"reconcile"`
	StopOnError    bool             `yaml:"stop_on_error"`
	Attributes     []misp.Attribute `yaml:"attributes"`
}

// Validate checks the fields CreateEvent cannot do without.
func (m Manifest) Validate() error {
	var problems []string
	if strings.TrimSpace(m.Org) == "" {
		problems = append(problems, "org is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		problems = append(problems, "name is required")
	}
	if m.Distribution != nil && (*m.Distribution < misp.DistributionOrganization || *m.Distribution > misp.DistributionInherit) {
		problems = append(problems, fmt.Sprintf("distribution %d out of range", *m.Distribution))
	}
	for i, a := range m.Attributes {
		if a.Value == "" || a.Type == "" {
			problems = append(problems, fmt.Sprintf("attribute %d needs value and type", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid manifest %q: %s", m.Name, strings.Join(problems, "; "))
	}
	return nil
}

// Request converts the manifest into a CreateEvent request. Distribution
// defaults to DistributionOrganization when unset.
func (m Manifest) Request() misp.CreateEventRequest {
	dist := misp.DistributionOrganization
	if m.Distribution != nil {
		dist = *m.Distribution
	}
	mode := misp.ModeCreateOnly
	if m.Reconcile {
		mode = misp.ModeReconcile
	}
	return misp.CreateEventRequest{
		Organization:   m.Org,
		EventName:      m.Name,
		PublisherEmail: m.PublisherEmail,
		Publish:        m.Publish,
		Distribution:   dist,
		TagIDs:         m.Tags,
		LocalTags:      m.LocalTags,
		Attributes:     m.Attributes,
		Mode:           mode,
		StopOnError:    m.StopOnError,
	}
}

// Parse reads every document in r. JSON is accepted as YAML.
func Parse(r io.Reader) ([]Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []Manifest
	for {
		var m Manifest
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Load parses the manifest file at path.
func Load(path string) ([]Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ms, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ms, nil
}
