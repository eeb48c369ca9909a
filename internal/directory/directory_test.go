package directory

import (
	"testing"

	"github.com/haasonsaas/switchboard/internal/config"
)

func TestLoadPreservesOrder(t *testing.T) {
	d, err := Load([]config.OperatorEntry{
		{Name: "Alice", ID: "111"},
		{Name: "Bob", ID: "222"},
		{Name: "Carol", ID: "333"},
	}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ops := d.List()
	if len(ops) != 3 {
		t.Fatalf("expected 3 operators, got %d", len(ops))
	}
	for i, want := range []string{"Alice", "Bob", "Carol"} {
		if ops[i].Name != want {
			t.Errorf("ops[%d].Name = %q, want %q", i, ops[i].Name, want)
		}
	}
}

func TestLoadSkipsMalformedIdentity(t *testing.T) {
	d, err := Load([]config.OperatorEntry{
		{Name: "Alice", ID: "111"},
		{Name: "Mallory", ID: "not-a-number"},
		{Name: "", ID: "444"},
	}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if d.Len() != 1 {
		t.Fatalf("expected 1 usable operator, got %d", d.Len())
	}
	if _, ok := d.Lookup(111); !ok {
		t.Error("expected Alice to be loaded")
	}
}

func TestLoadSkipsDuplicateIdentity(t *testing.T) {
	d, err := Load([]config.OperatorEntry{
		{Name: "Alice", ID: "111"},
		{Name: "AliceAgain", ID: "111"},
	}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if d.Len() != 1 {
		t.Fatalf("expected duplicate identity to be skipped, got %d operators", d.Len())
	}
	op, _ := d.Lookup(111)
	if op.Name != "Alice" {
		t.Errorf("expected first entry to win, got %q", op.Name)
	}
}

func TestLoadAllMalformed(t *testing.T) {
	_, err := Load([]config.OperatorEntry{
		{Name: "Mallory", ID: "nope"},
	}, nil)
	if err == nil {
		t.Fatal("expected error when no usable operator remains")
	}
}

func TestLookupUnknown(t *testing.T) {
	d, err := Load([]config.OperatorEntry{{Name: "Alice", ID: "111"}}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := d.Lookup(999); ok {
		t.Error("expected lookup of unknown identity to fail")
	}
	if d.IsOperator(999) {
		t.Error("expected IsOperator to be false for unknown identity")
	}
}

func TestListReturnsCopy(t *testing.T) {
	d, err := Load([]config.OperatorEntry{{Name: "Alice", ID: "111"}}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ops := d.List()
	ops[0].Name = "mutated"
	if fresh := d.List(); fresh[0].Name != "Alice" {
		t.Error("List() must return a copy")
	}
}
