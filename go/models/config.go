package models

import (
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"gopkg.in/yaml.v2"
)

const (
	DefaultDepth = 5
	MaxDepth     = 50

	DefaultsFile = "config.yml"
)

type Flavor int

const (
	FlavorIntel Flavor = iota
	FlavorATT
)

func (f Flavor) String() string {
	if f == FlavorATT {
		return "att"
	}
	return "intel"
}

func ParseFlavor(s string) (Flavor, error) {
	switch strings.ToLower(s) {
	case "intel":
		return FlavorIntel, nil
	case "att", "at&t", "gnu":
		return FlavorATT, nil
	}
	return FlavorIntel, errors.Wrapf(ErrBadConfig, "%s: bad flavor ('att' or 'intel')", s)
}

// Gadget filter policies. PolicyDegenerate is always applied when filtering
// is enabled; the others can be switched off individually.
const (
	PolicyDegenerate = "degenerate"
	PolicyNops       = "nops"
	PolicyPrivileged = "privileged"
	PolicyBranch     = "branch"
)

var policyNames = []string{PolicyDegenerate, PolicyNops, PolicyPrivileged, PolicyBranch}

func PolicyNames() []string {
	return append([]string(nil), policyNames...)
}

// ParsePolicies reads a comma separated policy list. "none" disables every
// optional policy.
func ParsePolicies(s string) (map[string]bool, error) {
	out := map[string]bool{PolicyDegenerate: true}
	if s == "" || s == "none" {
		return out, nil
	}
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		known := false
		for _, p := range policyNames {
			if p == name {
				known = true
				break
			}
		}
		if !known {
			return nil, errors.Wrapf(ErrBadConfig, "%s: unknown filter policy (%s)", name, strings.Join(policyNames, ", "))
		}
		out[name] = true
	}
	return out, nil
}

type Config struct {
	// loading
	Arch    Arch
	Endian  Endian
	RawBase uint64

	// gadget search
	Depth    int
	Flavor   Flavor
	All      bool
	Filter   bool
	Policies map[string]bool
	BadBytes []byte

	// output
	Color     bool
	Demangle  bool
	Symbolize bool
	Verbose   bool

	Logger hclog.Logger
}

func NewConfig() *Config {
	return &Config{
		Depth:  DefaultDepth,
		Flavor: FlavorIntel,
		Filter: true,
		Color:  true,
		Policies: map[string]bool{
			PolicyDegenerate: true,
			PolicyNops:       true,
			PolicyPrivileged: true,
		},
	}
}

func (c *Config) Validate() error {
	if c.Depth <= 0 || c.Depth > MaxDepth {
		return errors.Wrapf(ErrBadConfig, "%d: bad depth (1-%d)", c.Depth, MaxDepth)
	}
	return nil
}

// Policy reports whether a named filter policy is active.
func (c *Config) Policy(name string) bool {
	if !c.Filter {
		return false
	}
	if name == PolicyDegenerate {
		return true
	}
	return c.Policies[name]
}

func (c *Config) ActivePolicies() []string {
	var out []string
	for _, name := range policyNames {
		if c.Policy(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Config) Log() hclog.Logger {
	if c == nil || c.Logger == nil {
		return hclog.NewNullLogger()
	}
	return c.Logger
}

// Defaults mirrors the keys accepted in the user's config.yml.
type Defaults struct {
	Depth    *int    `yaml:"depth"`
	Flavor   *string `yaml:"flavor"`
	Bad      *string `yaml:"bad"`
	Color    *bool   `yaml:"color"`
	Demangle *bool   `yaml:"demangle"`
	All      *bool   `yaml:"all"`
	Filter   *bool   `yaml:"filter"`
	Policies *string `yaml:"policies"`
}

// Apply copies every key set in d onto c.
func (d *Defaults) Apply(c *Config) error {
	if d.Depth != nil {
		c.Depth = *d.Depth
	}
	if d.Flavor != nil {
		flavor, err := ParseFlavor(*d.Flavor)
		if err != nil {
			return err
		}
		c.Flavor = flavor
	}
	if d.Bad != nil {
		bad, err := ParseBadBytes(*d.Bad)
		if err != nil {
			return err
		}
		c.BadBytes = bad
	}
	if d.Policies != nil {
		policies, err := ParsePolicies(*d.Policies)
		if err != nil {
			return err
		}
		c.Policies = policies
	}
	if d.Color != nil {
		c.Color = *d.Color
	}
	if d.Demangle != nil {
		c.Demangle = *d.Demangle
	}
	if d.All != nil {
		c.All = *d.All
	}
	if d.Filter != nil {
		c.Filter = *d.Filter
	}
	return nil
}

func ParseDefaults(data []byte) (*Defaults, error) {
	var d Defaults
	if err := yaml.UnmarshalStrict(data, &d); err != nil {
		return nil, errors.Wrapf(ErrBadConfig, "%s: %v", DefaultsFile, err)
	}
	return &d, nil
}

// LoadDefaults applies the first config.yml found in the user's config
// folders and returns the folder it came from. A missing file leaves c
// untouched and returns an empty path.
func LoadDefaults(c *Config, app string) (string, error) {
	dirs := configdir.New("ropcorn", app)
	folder := dirs.QueryFolderContainsFile(DefaultsFile)
	if folder == nil {
		return "", nil
	}
	return loadDefaults(c, folder)
}

// LoadDefaultsFrom is LoadDefaults restricted to one directory.
func LoadDefaultsFrom(c *Config, dir string) (string, error) {
	folder := &configdir.Config{Path: dir, Type: configdir.Local}
	if !folder.Exists(DefaultsFile) {
		return "", nil
	}
	return loadDefaults(c, folder)
}

func loadDefaults(c *Config, folder *configdir.Config) (string, error) {
	data, err := folder.ReadFile(DefaultsFile)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", folder.Path)
	}
	d, err := ParseDefaults(data)
	if err != nil {
		return "", err
	}
	return folder.Path, d.Apply(c)
}
