package expr

import (
	"context"
	"strings"
	"testing"
)

func TestCompileRegexAccepts(t *testing.T) {
	re, err := CompileRegex(`^[a-z]+$`, "")
	if err != nil {
		t.Fatalf("CompileRegex: %v", err)
	}
	if !re.MatchString("abc") {
		t.Error("compiled regex should match a lowercase string")
	}
}

func TestCompileRegexCaseInsensitiveFlag(t *testing.T) {
	re, err := CompileRegex("abc", "i")
	if err != nil {
		t.Fatalf("CompileRegex: %v", err)
	}
	if !re.MatchString("ABC") {
		t.Error("'i' flag should make the regex case-insensitive")
	}
}

func TestCompileRegexRejectsOverlongPattern(t *testing.T) {
	pattern := strings.Repeat("a", maxPatternBytes+1)
	if _, err := CompileRegex(pattern, ""); err == nil {
		t.Error("CompileRegex should reject a pattern over the byte cap")
	}
}

func TestCompileRegexRejectsNestedQuantifier(t *testing.T) {
	if _, err := CompileRegex(`(a+)+`, ""); err == nil {
		t.Error("CompileRegex should reject a nested-quantifier pattern")
	}
}

func TestCompileRegexRejectsUnsupportedFlag(t *testing.T) {
	if _, err := CompileRegex("abc", "x"); err == nil {
		t.Error("CompileRegex should reject the unsupported 'x' flag")
	}
	if _, err := CompileRegex("abc", "q"); err == nil {
		t.Error("CompileRegex should reject an unknown flag")
	}
}

func TestCompileRegexRejectsInvalidSyntax(t *testing.T) {
	if _, err := CompileRegex("(unterminated", ""); err == nil {
		t.Error("CompileRegex should reject invalid regex syntax")
	}
}

func TestMatchStringAndReplaceAllString(t *testing.T) {
	re, err := CompileRegex(`o`, "")
	if err != nil {
		t.Fatalf("CompileRegex: %v", err)
	}
	ok, err := MatchString(context.Background(), re, "foo")
	if err != nil || !ok {
		t.Errorf("MatchString(foo) = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = MatchString(context.Background(), re, "bar")
	if err != nil || ok {
		t.Errorf("MatchString(bar) = (%v, %v), want (false, nil)", ok, err)
	}

	replaced, err := ReplaceAllString(context.Background(), re, "foo", "0")
	if err != nil {
		t.Fatalf("ReplaceAllString: %v", err)
	}
	if replaced != "f00" {
		t.Errorf("ReplaceAllString = %q, want %q", replaced, "f00")
	}
}
