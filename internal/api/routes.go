package api

import (
	"net/http"
	"regexp"
	"strings"
)

// Path grammar fragments. A segment is any non-empty run of characters
// other than a slash, whitespace, or URL query/fragment delimiters.
const (
	idPattern      = `[0-9A-Fa-f]{12}`
	segmentPattern = `[^/\s?#]+`
	profilesRoot   = "profiles"
)

var idRe = regexp.MustCompile(`^` + idPattern + `$`)

// IsID reports whether s has the shape of a service identifier:
// exactly 12 hexadecimal characters, either case.
func IsID(s string) bool {
	return idRe.MatchString(s)
}

// Rule is one accepted path shape for a verb.
type Rule struct {
	Verb  string
	Shape string // human-readable form, e.g. "/profiles/{id}/{category}"

	pattern *regexp.Regexp
	// guardIDs requires the segment following "profiles" to be an identifier.
	guardIDs bool
}

// matches reports whether path satisfies the rule.
func (r Rule) matches(path string) bool {
	if !r.pattern.MatchString(path) {
		return false
	}

	if r.guardIDs {
		return profileIDsWellFormed(path)
	}

	return true
}

// profileIDsWellFormed checks that every segment directly after a
// "profiles" segment is an identifier.
func profileIDsWellFormed(path string) bool {
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i := 0; i < len(segs)-1; i++ {
		if segs[i] == profilesRoot && !IsID(segs[i+1]) {
			return false
		}
	}

	return true
}

// Routes is an immutable set of per-verb rules. It is safe for concurrent
// read-only use and is shared by every request a Client sends.
type Routes struct {
	rules map[string][]Rule
}

// DefaultRoutes returns the rule set of the AMEE profile API:
//
//	POST    /auth | /profiles | /profiles/{id}/{category...}
//	PUT     /profiles/{id}/{category...}/{id}
//	DELETE  /profiles/{id}/{category...}/{id}
//	GET     any well-formed path, identifiers checked after "profiles"
func DefaultRoutes() *Routes {
	item := rule("", "/profiles/{id}/{category}/{id}",
		`^/profiles/`+idPattern+`(/`+segmentPattern+`)+/`+idPattern+`$`, false)

	post := []Rule{
		rule(http.MethodPost, "/auth", `^/auth$`, false),
		rule(http.MethodPost, "/profiles", `^/profiles$`, false),
		rule(http.MethodPost, "/profiles/{id}/{category}",
			`^/profiles/`+idPattern+`(/`+segmentPattern+`)+$`, false),
	}

	put := item
	put.Verb = http.MethodPut

	del := item
	del.Verb = http.MethodDelete

	get := rule(http.MethodGet, "/{path}", `^(/`+segmentPattern+`)+$`, true)

	return &Routes{rules: map[string][]Rule{
		http.MethodPost:   post,
		http.MethodPut:    {put},
		http.MethodDelete: {del},
		http.MethodGet:    {get},
	}}
}

func rule(verb, shape, pattern string, guardIDs bool) Rule {
	return Rule{
		Verb:     verb,
		Shape:    shape,
		pattern:  regexp.MustCompile(pattern),
		guardIDs: guardIDs,
	}
}

// Validate accepts path for verb or returns a *PathError naming both.
// It runs locally and never touches the network.
func (r *Routes) Validate(path, verb string) error {
	for _, rl := range r.rules[verb] {
		if rl.matches(path) {
			return nil
		}
	}

	return &PathError{Verb: verb, Path: path}
}

// Rules returns the rules registered for verb, in match order.
func (r *Routes) Rules(verb string) []Rule {
	return append([]Rule(nil), r.rules[verb]...)
}
