package core

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"
)

// revisionCache memoizes parsed revisions while sorting cache entries.
// A revision may be a semantic version, a Debian version, a PEP 440
// version, or an opaque string such as a commit hash.
type revisionCache struct {
	sem map[string]*semver.Version
	deb map[string]*debversion.Version
	pep map[string]*pep440.Version
}

func newRevisionCache() *revisionCache {
	return &revisionCache{
		sem: map[string]*semver.Version{},
		deb: map[string]*debversion.Version{},
		pep: map[string]*pep440.Version{},
	}
}

// semVersion returns nil when the value is not a semantic version.
func (c *revisionCache) semVersion(value string) *semver.Version {
	if parsed, ok := c.sem[value]; ok {
		return parsed
	}
	parsed, err := semver.NewVersion(value)
	if err != nil {
		parsed = nil
	}
	c.sem[value] = parsed
	return parsed
}

func (c *revisionCache) debVersion(value string) *debversion.Version {
	if parsed, ok := c.deb[value]; ok {
		return parsed
	}
	var result *debversion.Version
	if parsed, err := debversion.NewVersion(value); err == nil {
		result = &parsed
	}
	c.deb[value] = result
	return result
}

func (c *revisionCache) pepVersion(value string) *pep440.Version {
	if parsed, ok := c.pep[value]; ok {
		return parsed
	}
	var result *pep440.Version
	if parsed, err := pep440.Parse(value); err == nil {
		result = &parsed
	}
	c.pep[value] = result
	return result
}

// RevisionScheme names the version syntax a group of revisions shares.
type RevisionScheme string

const (
	RevisionSchemeSemver  RevisionScheme = "semver"
	RevisionSchemeDebian  RevisionScheme = "debian"
	RevisionSchemePEP440  RevisionScheme = "pep440"
	RevisionSchemeLexical RevisionScheme = "lexical"
)

// RevisionOrder compares revisions under a single scheme, so it is a
// total order over any set of revisions and safe to use as a sort
// comparator.
type RevisionOrder struct {
	scheme RevisionScheme
	cache  *revisionCache
}

// NewRevisionOrder picks the first scheme (semver, Debian, PEP 440) that
// parses every revision, and byte order when none does.
func NewRevisionOrder(revisions []string) RevisionOrder {
	cache := newRevisionCache()
	scheme := RevisionSchemeLexical
	for _, candidate := range []RevisionScheme{RevisionSchemeSemver, RevisionSchemeDebian, RevisionSchemePEP440} {
		if cache.parsesAll(candidate, revisions) {
			scheme = candidate
			break
		}
	}
	return RevisionOrder{scheme: scheme, cache: cache}
}

func (o RevisionOrder) Scheme() RevisionScheme {
	return o.scheme
}

// Compare returns -1, 0 or 1. A value the scheme cannot parse sorts
// before every parsed value, and such values order among themselves by
// bytes.
func (o RevisionOrder) Compare(a string, b string) int {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		return 0
	}
	cache := o.cache
	if cache == nil {
		cache = newRevisionCache()
	}
	okA, okB := cache.parses(o.scheme, a), cache.parses(o.scheme, b)
	switch {
	case okA && !okB:
		return 1
	case !okA && okB:
		return -1
	case !okA && !okB:
		return strings.Compare(a, b)
	}
	var result int
	switch o.scheme {
	case RevisionSchemeSemver:
		result = cache.semVersion(a).Compare(cache.semVersion(b))
	case RevisionSchemeDebian:
		result = cache.debVersion(a).Compare(*cache.debVersion(b))
	case RevisionSchemePEP440:
		result = cache.pepVersion(a).Compare(*cache.pepVersion(b))
	}
	if result == 0 {
		// Equal versions with different spellings, e.g. "1.0" and "1.0.0".
		return strings.Compare(a, b)
	}
	return sign(result)
}

func (c *revisionCache) parses(scheme RevisionScheme, value string) bool {
	value = strings.TrimSpace(value)
	switch scheme {
	case RevisionSchemeSemver:
		return c.semVersion(value) != nil
	case RevisionSchemeDebian:
		return c.debVersion(value) != nil
	case RevisionSchemePEP440:
		return c.pepVersion(value) != nil
	default:
		return true
	}
}

func (c *revisionCache) parsesAll(scheme RevisionScheme, values []string) bool {
	for _, value := range values {
		if !c.parses(scheme, value) {
			return false
		}
	}
	return true
}

func sign(value int) int {
	switch {
	case value > 0:
		return 1
	case value < 0:
		return -1
	default:
		return 0
	}
}

// CompareRevisions orders two pin revisions, newest last, under the first
// scheme both parse.
func CompareRevisions(a string, b string) int {
	return NewRevisionOrder([]string{a, b}).Compare(a, b)
}
