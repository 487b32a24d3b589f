package dbtypes

import (
	"reflect"
	"testing"
)

func TestStringArrayScan(t *testing.T) {
	cases := map[string]StringArray{
		"{}":                  {},
		"{segunda,quarta}":    {"segunda", "quarta"},
		`{"segunda","sexta"}`: {"segunda", "sexta"},
		`{"a,b","c\"d"}`:      {"a,b", `c"d`},
		"":                    {},
	}
	for in, want := range cases {
		var got StringArray
		if err := got.Scan(in); err != nil {
			t.Fatalf("scan %q: %v", in, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("scan %q: expected %#v got %#v", in, want, got)
		}
	}
}

func TestStringArrayScanBytesAndNil(t *testing.T) {
	var got StringArray
	if err := got.Scan([]byte("{terca}")); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if !reflect.DeepEqual(got, StringArray{"terca"}) {
		t.Fatalf("unexpected %#v", got)
	}
	if err := got.Scan(nil); err != nil || len(got) != 0 {
		t.Fatalf("nil scan should reset, got %#v err=%v", got, err)
	}
	if err := got.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestStringArrayValueRoundTrip(t *testing.T) {
	in := StringArray{"segunda", `x"y`}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var out StringArray
	if err := out.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("expected %#v got %#v", in, out)
	}
}
