package expr

import (
	"context"
	"regexp"
	"regexp/syntax"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/wbrown/sparqlite/internal/errs"
)

// maxPatternBytes bounds regex pattern length.
const maxPatternBytes = 1000

// regexTimeout bounds a single match/replace's wall-clock time.
const regexTimeout = time.Second

// regexWorkers caps how many regex evaluations may run concurrently
// across the process, so a burst of FILTER(REGEX(...)) calls cannot
// spawn unbounded goroutines.
var regexWorkers = semaphore.NewWeighted(16)

// nestedQuantifier is a cheap syntactic heuristic for catastrophic
// backtracking shapes of the form `(...[+*])[+*]`: a quantified group
// immediately re-quantified. It is deliberately conservative: it may
// reject safe patterns, never accepts an unsafe one by construction
// alone (the wall-clock timeout is the real backstop).
func nestedQuantifier(pattern string) bool {
	depth := 0
	groupQuantified := make([]bool, 0, 8)
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '\\':
			i++ // skip escaped character
		case '(':
			depth++
			groupQuantified = append(groupQuantified, false)
		case ')':
			if depth == 0 {
				continue
			}
			closedQuantified := groupQuantified[len(groupQuantified)-1]
			groupQuantified = groupQuantified[:len(groupQuantified)-1]
			depth--
			if i+1 < len(pattern) && (pattern[i+1] == '+' || pattern[i+1] == '*') && closedQuantified {
				return true
			}
		case '+', '*':
			if depth > 0 {
				groupQuantified[len(groupQuantified)-1] = true
			}
		}
	}
	return false
}

// CompileRegex validates and compiles pattern, applying the regex
// safety rules: a byte-length cap, a nested-quantifier heuristic
// rejection, and (for RE2-compiled Go regexes) reliance on RE2's
// linear-time guarantee for everything that passes those checks.
func CompileRegex(pattern, flags string) (*regexp.Regexp, error) {
	if len(pattern) > maxPatternBytes {
		return nil, errs.New(errs.OutOfRange, "regex pattern exceeds %d bytes", maxPatternBytes)
	}
	if nestedQuantifier(pattern) {
		return nil, errs.New(errs.UnsupportedPattern, "regex pattern rejected: nested quantifier")
	}
	goPattern := pattern
	for _, f := range flags {
		switch f {
		case 'i':
			goPattern = "(?i)" + goPattern
		case 's':
			goPattern = "(?s)" + goPattern
		case 'm':
			goPattern = "(?m)" + goPattern
		case 'x':
			// Extended whitespace mode has no direct RE2 equivalent;
			// rejected rather than silently mis-evaluated.
			return nil, errs.New(errs.UnsupportedOperation, "regex flag 'x' is not supported")
		default:
			return nil, errs.New(errs.UnsupportedOperation, "unknown regex flag %q", string(f))
		}
	}
	if _, err := syntax.Parse(goPattern, syntax.Perl); err != nil {
		return nil, errs.New(errs.ParseError, "invalid regex pattern: %v", err)
	}
	re, err := regexp.Compile(goPattern)
	if err != nil {
		return nil, errs.New(errs.ParseError, "invalid regex pattern: %v", err)
	}
	return re, nil
}

// runWithTimeout evaluates fn on an isolated worker with a 1s
// wall-clock budget: on timeout the caller gets an error and the
// worker goroutine is abandoned rather than joined, the closest
// available semantics to killing a cooperative, non-preemptible
// regexp.Regexp.Match call.
func runWithTimeout(ctx context.Context, fn func() string) (string, error) {
	if err := regexWorkers.Acquire(ctx, 1); err != nil {
		return "", errs.New(errs.Timeout, "regex worker pool exhausted: %v", err)
	}
	defer regexWorkers.Release(1)

	ctx, cancel := context.WithTimeout(ctx, regexTimeout)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		done <- fn()
	}()

	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		return "", errs.New(errs.RegexTimeout, "regex evaluation exceeded %s", regexTimeout)
	}
}

// MatchString evaluates re against s with the 1s timeout guard.
func MatchString(ctx context.Context, re *regexp.Regexp, s string) (bool, error) {
	result, err := runWithTimeout(ctx, func() string {
		if re.MatchString(s) {
			return "1"
		}
		return "0"
	})
	if err != nil {
		return false, err
	}
	return result == "1", nil
}

// ReplaceAllString evaluates re's replacement against s with the 1s
// timeout guard.
func ReplaceAllString(ctx context.Context, re *regexp.Regexp, s, repl string) (string, error) {
	return runWithTimeout(ctx, func() string {
		return re.ReplaceAllString(s, repl)
	})
}
