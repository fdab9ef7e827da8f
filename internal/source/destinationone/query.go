package destinationone

import (
	"strings"
)

// CategoryQuery builds the provider's q parameter that matches any of values, e.g.
// category:"Konzert" OR category:"Theater". It returns "" when no value is usable.
func CategoryQuery(values []string) string {
	terms := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		v = strings.ReplaceAll(v, `"`, `\"`)
		terms = append(terms, `category:"`+v+`"`)
	}
	return strings.Join(terms, " OR ")
}
