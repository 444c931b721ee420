package policy

import (
	"strconv"
	"strings"
)

// CompareVersions compares two dotted version strings numerically per
// segment. It returns -1 if a < b, 0 if equal, and 1 if a > b. Missing
// segments compare as zero, so "1.0" equals "1.0.0". Non-numeric
// segments compare as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av := segmentValue(as, i)
		bv := segmentValue(bs, i)
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

func segmentValue(segments []string, i int) int {
	if i >= len(segments) {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(segments[i]))
	if err != nil {
		return 0
	}
	return v
}

// BumpMinor increments the minor segment of a dotted major.minor version.
// "1.0" becomes "1.1"; a bare "2" becomes "2.1". Unparseable input
// restarts at "1.0".
func BumpMinor(version string) string {
	segments := strings.Split(version, ".")
	if len(segments) == 0 || segments[0] == "" {
		return "1.0"
	}

	major, err := strconv.Atoi(strings.TrimSpace(segments[0]))
	if err != nil {
		return "1.0"
	}

	minor := 0
	if len(segments) > 1 {
		if m, err := strconv.Atoi(strings.TrimSpace(segments[1])); err == nil {
			minor = m
		}
	}

	return strconv.Itoa(major) + "." + strconv.Itoa(minor+1)
}
