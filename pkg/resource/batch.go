package resource

import (
	"regexp"
	"sort"
	"strings"
)

// batchExpr matches the resource families that expose batch/retrieve.
var batchExpr = regexp.MustCompile(`v2/(?:artifacts|containers|files|samples)/[A-Za-z0-9-]+`)

// Batch is the outcome of Classify.
type Batch struct {
	// Batchable is true when one batch/retrieve call can serve every URI.
	Batchable bool

	// Family is the shared resource family, e.g. "containers". Empty unless Batchable.
	Family string

	// URIs are the URIs to fetch, in input order. When Batchable, only the
	// resource URIs of Family are kept; action URIs and URIs outside the
	// batch families are left out.
	URIs []string
}

// IsAction reports whether uri targets a download or upload sub-action
// rather than a resource.
func IsAction(uri string) bool {
	for _, seg := range strings.Split(Path(uri), "/") {
		if seg == "download" || seg == "upload" {
			return true
		}
	}
	return false
}

// Classify decides whether uris can be fetched with a single batch/retrieve
// call. Action URIs are ignored when collecting families, so they can never
// cause a MixedResourceError.
func Classify(uris []string) (Batch, error) {
	families := make(map[string]struct{})
	members := make([]string, 0, len(uris))
	for _, uri := range uris {
		if !batchExpr.MatchString(uri) || IsAction(uri) {
			continue
		}
		families[Family(uri)] = struct{}{}
		members = append(members, uri)
	}

	if len(families) > 1 {
		found := make([]string, 0, len(families))
		for f := range families {
			found = append(found, f)
		}
		sort.Strings(found)
		return Batch{}, &MixedResourceError{URIs: uris, Found: found}
	}

	if len(families) == 0 {
		return Batch{URIs: uris}, nil
	}

	batch := Batch{Batchable: true, URIs: members}
	for f := range families {
		batch.Family = f
	}
	return batch, nil
}
