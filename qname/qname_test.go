package qname

import "testing"

func TestNameString(t *testing.T) {
	tests := []struct {
		name Name
		want string
	}{
		{Local("id"), "id"},
		{SVG("rect"), "{http://www.w3.org/2000/svg}rect"},
		{New(NsXLink, "href"), "{http://www.w3.org/1999/xlink}href"},
	}
	for _, tt := range tests {
		if got := tt.name.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestNameComparable(t *testing.T) {
	m := map[Name]int{SVG("fill"): 1}
	if m[New(NsSVG, "fill")] != 1 {
		t.Fatal("expected equal names to be interchangeable as map keys")
	}
	if _, ok := m[Local("fill")]; ok {
		t.Fatal("names in different namespaces must differ")
	}
	if !(Name{}).IsZero() || SVG("a").IsZero() {
		t.Fatal("IsZero mismatch")
	}
}
