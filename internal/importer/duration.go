package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// HumanDuration renders an ISO 8601 duration such as PT1H30M as
// "1 hour 30 minutes". It returns "" for anything it cannot read or a
// zero duration.
func HumanDuration(iso string) string {
	m := isoDuration.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(iso)))
	if m == nil {
		return ""
	}

	units := []string{"day", "hour", "minute", "second"}
	var parts []string
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		f, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil || f == 0 {
			continue
		}
		n := int(f)
		if n != 1 {
			unit += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, unit))
	}
	return strings.Join(parts, " ")
}
