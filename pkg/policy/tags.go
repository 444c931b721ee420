package policy

import (
	"fmt"
	"regexp"
)

// tagPattern matches the bracketed hexadecimal group/element pair used to
// address DICOM-style tags, e.g. "(0010,0010)".
var tagPattern = regexp.MustCompile(`^\([0-9a-fA-F]{4},[0-9a-fA-F]{4}\)$`)

// ValidTag reports whether a single tag matches the required
// "(GGGG,EEEE)" format.
func ValidTag(tag string) bool {
	return tagPattern.MatchString(tag)
}

// TagViolation describes one tag-configuration rule violation.
type TagViolation struct {
	// Tag is the offending tag string.
	Tag string

	// Set names the set the tag was found in ("remove", "pseudonymize",
	// "preserve").
	Set string

	// Reason describes the violation.
	Reason string
}

// String returns a human-readable description of the violation.
func (v TagViolation) String() string {
	return fmt.Sprintf("tag %q in %s set: %s", v.Tag, v.Set, v.Reason)
}

// TagValidationResult is the structured outcome of validating a tag
// configuration. It is usable standalone so callers can lint a
// configuration without constructing a policy.
type TagValidationResult struct {
	OK         bool
	Violations []TagViolation
}

// ValidateTagConfig checks every tag against the bracketed hex-pair format
// and enforces pairwise disjointness of the three sets.
//
// The exclusivity ordering is deliberate: remove owns a tag first, so a
// tag listed under pseudonymize that also appears under remove is the
// pseudonymize entry's violation, and a preserve entry conflicting with
// either other set is the preserve entry's violation.
func ValidateTagConfig(cfg TagConfig) TagValidationResult {
	var violations []TagViolation

	checkFormat := func(set string, tags []string) {
		for _, tag := range tags {
			if !ValidTag(tag) {
				violations = append(violations, TagViolation{
					Tag:    tag,
					Set:    set,
					Reason: "must match (GGGG,EEEE) with four hex digits per group",
				})
			}
		}
	}
	checkFormat("remove", cfg.Remove)
	checkFormat("pseudonymize", cfg.Pseudonymize)
	checkFormat("preserve", cfg.Preserve)

	remove := toSet(cfg.Remove)
	pseudonymize := toSet(cfg.Pseudonymize)

	for _, tag := range cfg.Pseudonymize {
		if remove[tag] {
			violations = append(violations, TagViolation{
				Tag:    tag,
				Set:    "pseudonymize",
				Reason: "also listed in remove set",
			})
		}
	}
	for _, tag := range cfg.Preserve {
		if remove[tag] {
			violations = append(violations, TagViolation{
				Tag:    tag,
				Set:    "preserve",
				Reason: "also listed in remove set",
			})
		} else if pseudonymize[tag] {
			violations = append(violations, TagViolation{
				Tag:    tag,
				Set:    "preserve",
				Reason: "also listed in pseudonymize set",
			})
		}
	}

	return TagValidationResult{
		OK:         len(violations) == 0,
		Violations: violations,
	}
}

func toSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		set[tag] = true
	}
	return set
}
