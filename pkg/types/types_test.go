package types

import "testing"

func TestShipAddressScanRoundTrip(t *testing.T) {
	in := ShipAddress{Name: "Card Shop", Street1: "1 Main St", City: "Austin", State: "TX", Zip: "78701"}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var out ShipAddress
	if err := out.Scan([]byte(v.(string))); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v got %+v", in, out)
	}
	if !out.IsComplete() {
		t.Fatal("expected address to be complete")
	}
	if out.CountryOrDefault() != "US" {
		t.Fatalf("expected US default, got %s", out.CountryOrDefault())
	}
}

func TestShipAddressIncomplete(t *testing.T) {
	var nilAddr *ShipAddress
	if nilAddr.IsComplete() {
		t.Fatal("nil address is never complete")
	}
	partial := &ShipAddress{Name: "x", Street1: "y", City: "z", State: "TX"}
	if partial.IsComplete() {
		t.Fatal("missing zip should be incomplete")
	}
}

func TestPackagePresetsScanAndFind(t *testing.T) {
	var presets PackagePresets
	if err := presets.Scan(`[{"name":"Bubble Mailer","predefinedPackage":"Parcel","weight":2.5,"length":9}]`); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got, ok := presets.Find(" bubble mailer ")
	if !ok {
		t.Fatal("expected preset lookup to be case-insensitive")
	}
	if got.Weight != 2.5 || got.Length == nil || *got.Length != 9 {
		t.Fatalf("unexpected preset %+v", got)
	}
	if _, ok := presets.Find("missing"); ok {
		t.Fatal("unexpected match")
	}

	if err := presets.Scan(nil); err != nil || len(presets) != 0 {
		t.Fatalf("expected empty presets on nil scan, got %v %v", presets, err)
	}
}

func TestPackagePresetsNilValue(t *testing.T) {
	var presets PackagePresets
	v, err := presets.Value()
	if err != nil || v != "[]" {
		t.Fatalf("expected [] got %v (%v)", v, err)
	}
}
