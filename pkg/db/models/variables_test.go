package models

import "testing"

func TestVariablesRoundTrip(t *testing.T) {
	v := Variables{"packSlug": "genesis", "amount": "1.50"}
	raw, err := v.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var out Variables
	if err := out.Scan([]byte(raw.(string))); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if out["packSlug"] != "genesis" || out["amount"] != "1.50" {
		t.Fatalf("unexpected variables %v", out)
	}
}

func TestVariablesScanNilAndBadType(t *testing.T) {
	var v Variables
	if err := v.Scan(nil); err != nil || v == nil || len(v) != 0 {
		t.Fatalf("expected empty map, got %v err=%v", v, err)
	}
	if err := v.Scan(42); err == nil {
		t.Fatal("expected error for unsupported type")
	}
	var nilVars Variables
	if raw, _ := nilVars.Value(); raw != "{}" {
		t.Fatalf("nil variables should encode as {}, got %v", raw)
	}
}
