// Package resource maps LIMS endpoint URIs to the XML element names used to
// parse their responses, and decides whether a set of URIs can be served by
// a single batch/retrieve call.
package resource

import (
	"regexp"
	"strings"
)

// APIVersion is the path marker that precedes every resource path.
const APIVersion = "v2/"

// Tag is the XML element name that identifies one resource instance in a
// response body, e.g. "container" in a listing or "con:container" as the
// root of a single container.
type Tag string

// Pattern binds a post-version path expression to a tag.
type Pattern struct {
	Expr *regexp.Regexp
	Tag  Tag
}

func p(expr string, tag Tag) Pattern {
	return Pattern{Expr: regexp.MustCompile(expr), Tag: tag}
}

// patterns is searched in order and the first match wins. Paths are only
// anchored at the start, so a sub-resource must come before its parent.
var patterns = []Pattern{
	p(`^artifacts/?$`, "artifact"),
	p(`^artifacts/[^/]+`, "art:artifact"),
	p(`^artifactgroups/?$`, "artifactgroup"),
	p(`^artifactgroups/[^/]+`, "art:artifactgroup"),
	p(`^automations/?$`, "automation"),
	p(`^automations/[^/]+`, "auto:automation"),
	p(`^configuration/protocols/?$`, "protocol"),
	p(`^configuration/protocols/[^/]+/steps/?$`, "step"),
	p(`^configuration/protocols/[^/]+/steps/[^/]+`, "protstepcnf:step"),
	p(`^configuration/protocols/[^/]+`, "protcnf:protocol"),
	p(`^configuration/udfs/?$`, "udfconfig"),
	p(`^configuration/udfs/[^/]+`, "cnf:field"),
	p(`^configuration/udts/?$`, "udtconfig"),
	p(`^configuration/udts/[^/]+`, "udtconf:type"),
	p(`^configuration/workflows/?$`, "workflow"),
	p(`^configuration/workflows/[^/]+/stages/[^/]+`, "stg:stage"),
	p(`^configuration/workflows/[^/]+`, "wkfcnf:workflow"),
	p(`^containers/?$`, "container"),
	p(`^containers/[^/]+`, "con:container"),
	p(`^containertypes/?$`, "container-type"),
	p(`^containertypes/[^/]+`, "ctp:container-type"),
	p(`^controltypes/?$`, "control-type"),
	p(`^controltypes/[^/]+`, "ctrltp:control-type"),
	p(`^files/?$`, "file"),
	p(`^files/[^/]+`, "file:file"),
	p(`^instruments/?$`, "instrument"),
	p(`^instruments/[^/]+`, "inst:instrument"),
	p(`^instrumenttypes/?$`, "instrument-type"),
	p(`^instrumenttypes/[^/]+`, "itp:instrument-type"),
	p(`^labs/?$`, "lab"),
	p(`^labs/[^/]+`, "lab:lab"),
	p(`^permissions/?$`, "permission"),
	p(`^permissions/[^/]+`, "permission:permission"),
	p(`^processes/?$`, "process"),
	p(`^processes/[^/]+`, "prc:process"),
	p(`^processtemplates/?$`, "process-template"),
	p(`^processtemplates/[^/]+`, "ptm:process-template"),
	p(`^processtypes/?$`, "process-type"),
	p(`^processtypes/[^/]+`, "ptp:process-type"),
	p(`^projects/?$`, "project"),
	p(`^projects/[^/]+`, "prj:project"),
	p(`^queues/[^/]+`, "artifact"),
	p(`^reagentkits/?$`, "reagent-kit"),
	p(`^reagentkits/[^/]+`, "kit:reagent-kit"),
	p(`^reagentlots/?$`, "reagent-lot"),
	p(`^reagentlots/[^/]+`, "lot:reagent-lot"),
	p(`^reagenttypes/?$`, "reagent-type"),
	p(`^reagenttypes/[^/]+`, "rtp:reagent-type"),
	p(`^researchers/?$`, "researcher"),
	p(`^researchers/[^/]+`, "res:researcher"),
	p(`^roles/?$`, "role"),
	p(`^roles/[^/]+`, "role:role"),
	p(`^samples/?$`, "sample"),
	p(`^samples/[^/]+`, "smp:sample"),
	p(`^steps/[^/]+/actions`, "stp:actions"),
	p(`^steps/[^/]+/details`, "stp:details"),
	p(`^steps/[^/]+/placements`, "stp:placements"),
	p(`^steps/[^/]+/pools`, "stp:pools"),
	p(`^steps/[^/]+/programstatus`, "stp:program-status"),
	p(`^steps/[^/]+/reagentlots`, "stp:lots"),
	p(`^steps/[^/]+/reagents`, "stp:reagents"),
	p(`^steps/[^/]+/setup`, "stp:setup"),
	p(`^steps/[^/]+`, "stp:step"),
}

// Patterns returns a copy of the resolver table in match order.
func Patterns() []Pattern {
	out := make([]Pattern, len(patterns))
	copy(out, patterns)
	return out
}

// Path returns the part of uri after the last version marker, without the
// query string and surrounding slashes.
func Path(uri string) string {
	if i := strings.LastIndex(uri, APIVersion); i >= 0 {
		uri = uri[i+len(APIVersion):]
	}
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}
	return strings.Trim(uri, "/")
}

// Family returns the first post-version path segment, e.g. "containers".
func Family(uri string) string {
	path := Path(uri)
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

// Resolve returns the tag registered for uri.
func Resolve(uri string) (Tag, error) {
	path := Path(uri)
	for _, pat := range patterns {
		if pat.Expr.MatchString(path) {
			return pat.Tag, nil
		}
	}
	return "", &UnknownResourceError{URI: uri}
}
