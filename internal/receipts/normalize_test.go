package receipts

import "testing"

func strPtr(s string) *string { return &s }

func TestNormalizeVendorTitleCasesShouting(t *testing.T) {
	got := NormalizeVendor(strPtr("  ACME   PLUMBING LTD "), "scan.pdf")
	if got == nil || *got != "Acme Plumbing Ltd" {
		t.Fatalf("expected Acme Plumbing Ltd, got %v", got)
	}
}

func TestNormalizeVendorKeepsAcronyms(t *testing.T) {
	got := NormalizeVendor(strPtr("ABC heating of toronto"), "scan.pdf")
	if got == nil || *got != "ABC Heating of Toronto" {
		t.Fatalf("expected ABC Heating of Toronto, got %v", got)
	}
}

func TestNormalizeVendorGenericFallsBackToFilename(t *testing.T) {
	got := NormalizeVendor(strPtr("INVOICE"), "hydro_bill_march.pdf")
	if got == nil || *got != "Hydro Bill March" {
		t.Fatalf("expected Hydro Bill March, got %v", got)
	}
}

func TestNormalizeVendorFewLettersFallsBack(t *testing.T) {
	got := NormalizeVendor(strPtr("A1 22"), "city-water.pdf")
	if got == nil || *got != "City Water" {
		t.Fatalf("expected City Water, got %v", got)
	}
	if got := NormalizeVendor(strPtr("A1"), "x.pdf"); got != nil {
		t.Fatalf("expected nil, got %q", *got)
	}
}

func TestNormalizeVendorNil(t *testing.T) {
	if got := NormalizeVendor(nil, "hydro.pdf"); got != nil {
		t.Fatalf("expected nil, got %q", *got)
	}
}

func TestFilenameLabel(t *testing.T) {
	if got := FilenameLabel("uploads/home_depot-order.PDF"); got == nil || *got != "Home Depot Order" {
		t.Fatalf("unexpected label %v", got)
	}
	if got := FilenameLabel("receipt.pdf"); got != nil {
		t.Fatalf("expected nil for boilerplate name, got %q", *got)
	}
	if got := FilenameLabel("12.pdf"); got != nil {
		t.Fatalf("expected nil, got %q", *got)
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"":             DefaultCategory,
		"   ":          DefaultCategory,
		"hvac":         "HVAC",
		" PLUMBING ":   "Plumbing",
		"interior":     "Interior",
		"pest control": "Pest Control",
		"LANDSCAPING":  "Landscaping",
		"snow and ice": "Snow and Ice",
	}
	for in, want := range cases {
		if got := NormalizeCategory(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestNormalizeCategoryIdempotent(t *testing.T) {
	inputs := []string{"", "hvac", "Heat pumps", "THE ROOF GUYS", "of mice", "ABC repairs", "a-b", "Électricité", "  weird   spacing "}
	for _, in := range inputs {
		once := NormalizeCategory(in)
		if twice := NormalizeCategory(once); twice != once {
			t.Fatalf("%q: %q != %q", in, once, twice)
		}
	}
}

func TestBuildTitle(t *testing.T) {
	amount := 45.67
	if got := BuildTitle(DefaultCategory, strPtr("Rona"), &amount); got == nil || *got != "Rona • $45.67" {
		t.Fatalf("unexpected title %v", got)
	}
	if got := BuildTitle("Plumbing", strPtr("Acme"), nil); got == nil || *got != "Plumbing • Acme" {
		t.Fatalf("unexpected title %v", got)
	}
	if got := BuildTitle(DefaultCategory, nil, nil); got != nil {
		t.Fatalf("expected nil, got %q", *got)
	}
}
