package normalize

import "testing"

func testNamer() *Namer {
	return NewNamer([]string{"Edinburgh", "Glasgow", "Aberdeen", "Dundee", "Leeds", "Fort William"})
}

func TestName_PrefixAndSuffixVariants(t *testing.T) {
	t.Parallel()

	n := testNamer()

	want := n.Name("The Mash House")
	if got := n.Name("Upstairs At The Mash House"); got != want {
		t.Fatalf("upstairs variant diverged: %q vs %q", got, want)
	}
	if got := n.Name("MASH HOUSES"); got != want {
		t.Fatalf("plural variant diverged: %q vs %q", got, want)
	}
	if want != "mash house" {
		t.Fatalf("unexpected canonical key: %q", want)
	}
}

func TestName_Apostrophes(t *testing.T) {
	t.Parallel()

	n := testNamer()

	want := n.Name("Sneaky Pete's")
	if got := n.Name("Sneaky Petes"); got != want {
		t.Fatalf("apostrophe variant diverged: %q vs %q", got, want)
	}
	if got := n.Name("The Sneaky Petes"); got != want {
		t.Fatalf("article variant diverged: %q vs %q", got, want)
	}
	if want != "sneaky pete" {
		t.Fatalf("unexpected canonical key: %q", want)
	}
}

func TestName_AndCollapsing(t *testing.T) {
	t.Parallel()

	n := testNamer()

	if got, want := n.Name("Nice N Sleazy"), n.Name("Nice and Sleazy"); got != want {
		t.Fatalf("and variants diverged: %q vs %q", got, want)
	}
	if got := n.Name("Rock N Roll"); got != "rock roll" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func TestName_TrailingVenueTypeRun(t *testing.T) {
	t.Parallel()

	n := testNamer()

	// The whole trailing run goes, not just the last word.
	if got := n.Name("The Liquid Warehouse Bar"); got != "liquid" {
		t.Fatalf("expected full trailing run stripped, got %q", got)
	}
	if got, want := n.Name("Leith Depot Bar"), n.Name("Leith Depot"); got != want {
		t.Fatalf("venue-type variants diverged: %q vs %q", got, want)
	}
}

func TestName_TrailingCity(t *testing.T) {
	t.Parallel()

	n := testNamer()

	if got, want := n.Name("Bannermans Edinburgh"), n.Name("Bannermans"); got != want {
		t.Fatalf("city variants diverged: %q vs %q", got, want)
	}
	if got := n.Name("Bannermans Edinburgh"); got != "bannerman" {
		t.Fatalf("unexpected key: %q", got)
	}
	// City comparison happens after singularization of the final word.
	if got := n.Name("The Wardrobe Leeds"); got != "wardrobe" {
		t.Fatalf("expected singularized city match, got %q", got)
	}
}

func TestName_MultiWordCity(t *testing.T) {
	t.Parallel()

	n := testNamer()

	// The whole phrase is one stoplist unit.
	if got := n.Name("Ceilidh Place Fort William"); got != "ceilidh place" {
		t.Fatalf("expected trailing phrase stripped, got %q", got)
	}
	// A bare word from inside a multi-word entry is not a city.
	if got := n.Name("Cafe William"); got != "cafe william" {
		t.Fatalf("expected bare trailing word kept, got %q", got)
	}
}

func TestName_NoiseOnlyInput(t *testing.T) {
	t.Parallel()

	n := testNamer()

	if got := n.Name("!!! ... ???"); got != "" {
		t.Fatalf("expected empty key for noise input, got %q", got)
	}
	if got := n.Name("The Bar"); got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}
}

func TestName_FixedPointOnNormalizedOutput(t *testing.T) {
	t.Parallel()

	n := testNamer()

	inputs := []string{
		"The Mash House",
		"Upstairs At The Mash House",
		"Sneaky Pete's",
		"Nice N Sleazy",
		"Bannermans Edinburgh",
		"Leith Depot Bar",
		"The Glasshouse",
		"King Tut's Wah Wah Hut",
		"Tunnels Aberdeen",
		"O2 ABC Glasgow",
	}
	for _, raw := range inputs {
		key := n.Name(raw)
		if again := n.Name(key); again != key {
			t.Fatalf("key not a fixed point for %q: %q -> %q", raw, key, again)
		}
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	if got := Text("  13-29 Nicolson St., Edinburgh! "); got != "13 29 nicolson st edinburgh" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
	// Punctuation separates; a hyphenated range and a spaced range are the
	// same address.
	if got, want := Text("13-29 Cowgate"), Text("13 29 Cowgate"); got != want {
		t.Fatalf("hyphen and space variants diverged: %q vs %q", got, want)
	}
	if got := Text(""); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}
