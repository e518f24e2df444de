// Package collector implements the versioned collector-pack registry and
// the collector/query resolution and execution engine built on top of it.
// Packs are plain YAML files grouped by db_type under a drivers_root
// directory, decoded into tagged structs with gopkg.in/yaml.v2.
package collector

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionRange bounds the database product versions a pack supports, each
// side a dotted numeric tuple (e.g. "12.0" or "19.7.0.0.0").
type VersionRange struct {
	Min string `yaml:"min"`
	Max string `yaml:"max"`
}

// LayerConfig is one ordered stage of a layered collector.
type LayerConfig struct {
	Order      *int                   `yaml:"order"`
	RenderHint map[string]interface{} `yaml:"render_hint"`
	SQL        string                 `yaml:"sql"`
	SingleRow  bool                   `yaml:"single_row"`
}

// QueryConfig is one independently addressable query within a collector.
type QueryConfig struct {
	Description string `yaml:"description"`
	SQL         string `yaml:"sql"`
	SingleRow   bool   `yaml:"single_row"`
}

// Definition is either a set of ordered layers or a set of standalone
// queries (or both); at least one must be non-empty or the collector
// yields no result.
type Definition struct {
	Layers  map[string]LayerConfig `yaml:"layers"`
	Queries map[string]QueryConfig `yaml:"queries"`
}

// IsEmpty reports whether this definition has neither layers nor queries.
func (d Definition) IsEmpty() bool {
	return len(d.Layers) == 0 && len(d.Queries) == 0
}

// Pack is the parsed form of one collector YAML file.
type Pack struct {
	DBType            string                `yaml:"db_type"`
	SupportedVersions *VersionRange         `yaml:"supported_versions"`
	Collectors        map[string]Definition `yaml:"collectors"`

	// SourceFile is the YAML file's base name (set by the loader, not
	// decoded from YAML).
	SourceFile string `yaml:"-"`
}

// PackID is the source file name with its .yaml/.yml extension stripped,
// used as the <pack> half of a collector_ref "<pack>:<collector_id>".
func (p *Pack) PackID() string {
	name := p.SourceFile
	name = strings.TrimSuffix(name, ".yaml")
	name = strings.TrimSuffix(name, ".yml")
	return name
}

// version is a parsed dotted numeric tuple, compared component-wise with
// missing trailing components treated as zero.
type version []int64

func parseVersion(s string) version {
	parts := strings.Split(s, ".")
	v := make(version, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			n = 0
		}
		v[i] = n
	}
	return v
}

// compare returns -1, 0, 1 as a compares to b, padding the shorter tuple
// with zeros.
func (a version) compare(b version) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// inRange reports whether v falls within [min, max] inclusive.
func (r VersionRange) inRange(v version) bool {
	min := parseVersion(r.Min)
	max := parseVersion(r.Max)
	return v.compare(min) >= 0 && v.compare(max) <= 0
}

// extractVersion pulls a dotted-numeric version tuple out of a raw product
// version string (e.g. "Oracle Database 19c Enterprise Edition Release
// 19.7.0.0.0" or DuckDB's "v1.1.3"):
// prefer a five-component dotted run (Oracle-style), then three, else fall
// back to parsing the raw string itself as a dotted tuple (drivers that
// already report a bare version like "15.3" hit this path directly; a
// banner with no such run and non-numeric text parses to zeros).
func extractVersion(raw string) version {
	if m := findDottedRun(raw, 5); m != "" {
		return parseVersion(m)
	}
	if m := findDottedRun(raw, 3); m != "" {
		return parseVersion(m)
	}
	return parseVersion(raw)
}

// findDottedRun scans raw for the first n consecutive dot-separated
// integer groups within a token; a longer run is cut to its first n
// groups ("15.0.4223.1" with n=3 yields "15.0.4223").
func findDottedRun(raw string, n int) string {
	fields := splitOnNonVersionChars(raw)
	for _, f := range fields {
		parts := strings.Split(f, ".")
		if len(parts) < n {
			continue
		}
		for start := 0; start+n <= len(parts); start++ {
			candidate := parts[start : start+n]
			if allNumeric(candidate) {
				return strings.Join(candidate, ".")
			}
		}
	}
	return ""
}

func allNumeric(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return false
		}
		if _, err := strconv.ParseInt(p, 10, 64); err != nil {
			return false
		}
	}
	return true
}

// splitOnNonVersionChars breaks raw into tokens of [0-9.], discarding
// everything else, so "Release 19.7.0.0.0" yields ["19.7.0.0.0"].
func splitOnNonVersionChars(raw string) []string {
	var fields []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, strings.Trim(cur.String(), "."))
			cur.Reset()
		}
	}
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return fields
}

// Valid reports whether p satisfies the load-time invariant: a pack is
// valid only if supported_versions is present.
func (p *Pack) Valid() bool {
	return p.SupportedVersions != nil
}

func (p *Pack) String() string {
	return fmt.Sprintf("%s/%s", p.DBType, p.SourceFile)
}
