package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseIDList(t *testing.T) {
	t.Parallel()

	ids, err := parseIDList("3, 1,7")
	if err != nil {
		t.Fatalf("parseIDList returned error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 7 {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if _, err := parseIDList(""); err == nil {
		t.Fatal("expected error for empty list")
	}
	if _, err := parseIDList("1,x"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestCollectMergePlans_Inline(t *testing.T) {
	t.Parallel()

	plans, err := collectMergePlans(5, "7,9", "")
	if err != nil {
		t.Fatalf("collectMergePlans returned error: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected one plan, got %d", len(plans))
	}
	if plans[0].Keep != 5 || len(plans[0].Remove) != 2 {
		t.Fatalf("unexpected plan: %+v", plans[0])
	}
}

func TestCollectMergePlans_Rejections(t *testing.T) {
	t.Parallel()

	if _, err := collectMergePlans(0, "", ""); err == nil {
		t.Fatal("expected error when nothing is given")
	}
	if _, err := collectMergePlans(5, "5", ""); err == nil {
		t.Fatal("expected error when keep appears in remove")
	}
	if _, err := collectMergePlans(5, "7", "plans.json"); err == nil {
		t.Fatal("expected error when inline flags are combined with a plan file")
	}
}

func TestCollectMergePlans_PlanFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plans.json")
	payload := `[{"keep": 2, "remove": [4, 6]}, {"keep": 10, "remove": [11]}]`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write plan file: %v", err)
	}

	plans, err := collectMergePlans(0, "", path)
	if err != nil {
		t.Fatalf("collectMergePlans returned error: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected two plans, got %d", len(plans))
	}
	if plans[0].Keep != 2 || plans[1].Keep != 10 {
		t.Fatalf("unexpected plans: %+v", plans)
	}

	badPath := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(badPath, []byte(`[{"keep": 0, "remove": []}]`), 0o600); err != nil {
		t.Fatalf("write plan file: %v", err)
	}
	if _, err := collectMergePlans(0, "", badPath); err == nil {
		t.Fatal("expected error for invalid plan in file")
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"table", "JSON", " json "} {
		if _, err := parseOutputFormat(raw, outputFormatTable); err != nil {
			t.Fatalf("parseOutputFormat(%q) returned error: %v", raw, err)
		}
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseUTCDateRange(t *testing.T) {
	t.Parallel()

	from, to, err := parseUTCDateRange("2026-03-01", "2026-03-02")
	if err != nil {
		t.Fatalf("parseUTCDateRange returned error: %v", err)
	}
	if !from.Before(to) {
		t.Fatalf("expected from < to, got %v and %v", from, to)
	}
	if got := to.Sub(from).Hours(); got != 48 {
		t.Fatalf("expected a 48h window for a two-day inclusive range, got %vh", got)
	}

	if _, _, err := parseUTCDateRange("2026-03-02", "2026-03-01"); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
