package dict

import (
	"testing"

	"github.com/wbrown/sparqlite/rdf"
)

func TestMemDictionaryGetOrCreateIDIsIdempotent(t *testing.T) {
	d := NewMemDictionary()
	term := rdf.IRI("http://example.org/alice")

	id1, err := d.GetOrCreateID(term)
	if err != nil {
		t.Fatalf("GetOrCreateID: %v", err)
	}
	id2, err := d.GetOrCreateID(term)
	if err != nil {
		t.Fatalf("GetOrCreateID (second call): %v", err)
	}
	if id1 != id2 {
		t.Errorf("GetOrCreateID returned different ids for the same term: %v, %v", id1, id2)
	}
	if d.Size() != 1 {
		t.Errorf("Size() = %d, want 1", d.Size())
	}
}

func TestMemDictionaryLookupRoundTrip(t *testing.T) {
	d := NewMemDictionary()
	term := rdf.SimpleLiteral("Alice")

	id, err := d.GetOrCreateID(term)
	if err != nil {
		t.Fatalf("GetOrCreateID: %v", err)
	}

	gotID, ok := d.LookupID(term)
	if !ok || gotID != id {
		t.Errorf("LookupID(%v) = (%v, %v), want (%v, true)", term, gotID, ok, id)
	}

	gotTerm, ok := d.LookupTerm(id)
	if !ok || !gotTerm.Equal(term) {
		t.Errorf("LookupTerm(%v) = (%v, %v), want (%v, true)", id, gotTerm, ok, term)
	}
}

func TestMemDictionaryLookupMiss(t *testing.T) {
	d := NewMemDictionary()
	if _, ok := d.LookupID(rdf.IRI("http://example.org/never-seen")); ok {
		t.Error("LookupID on an unseen term should miss")
	}
	if _, ok := d.LookupTerm(DictRef(999)); ok {
		t.Error("LookupTerm on an unassigned dictionary id should miss")
	}
}

func TestMemDictionaryDistinguishesSimilarTerms(t *testing.T) {
	d := NewMemDictionary()
	plain := rdf.SimpleLiteral("hi")
	lang := rdf.LangLiteral("hi", "en")
	typed := rdf.TypedLiteral("hi", "http://example.org/customType")

	idPlain, _ := d.GetOrCreateID(plain)
	idLang, _ := d.GetOrCreateID(lang)
	idTyped, _ := d.GetOrCreateID(typed)

	if idPlain == idLang || idPlain == idTyped || idLang == idTyped {
		t.Errorf("expected distinct ids for plain/lang/typed variants of the same lexical value, got %v %v %v", idPlain, idLang, idTyped)
	}
}

func TestMemDictionaryUsesInlinePathForNumerics(t *testing.T) {
	d := NewMemDictionary()
	term := rdf.TypedLiteral("42", rdf.XSDInteger)

	id, err := d.GetOrCreateID(term)
	if err != nil {
		t.Fatalf("GetOrCreateID: %v", err)
	}
	if !id.IsInline() {
		t.Error("xsd:integer within inline range should produce an inline id, not a dictionary entry")
	}
	if d.Size() != 0 {
		t.Errorf("inline terms must not consume dictionary storage, Size() = %d", d.Size())
	}

	decoded, ok := d.LookupTerm(id)
	if !ok || !decoded.Equal(term) {
		t.Errorf("LookupTerm(inline id) = (%v, %v), want (%v, true)", decoded, ok, term)
	}
}
