package store

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), DefaultConfigFile))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func TestOpen_MissingFileUsesDefaults(t *testing.T) {
	st := testStore(t)

	pol := st.GetPolicy()
	if pol.Security != SecurityAllowlist {
		t.Errorf("default security: got %q", pol.Security)
	}
	if pol.Ask != AskOff || pol.AskFallback != FallbackDeny || pol.AutoAllowSkills {
		t.Errorf("unexpected default policy: %+v", pol)
	}
	bins := st.ListSafeBins()
	if !contains(bins, "ls") {
		t.Errorf("default safe bins must contain ls, got %v", bins)
	}
	if len(st.ListAllowlist()) != 0 {
		t.Errorf("default allowlist must be empty")
	}
}

func TestOpen_CorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte("{{{{ not yaml"), 0600); err != nil {
		t.Fatal(err)
	}

	var warned string
	st, err := Open(path, WithWarnFunc(func(format string, args ...any) {
		warned = format
	}))
	if err != nil {
		t.Fatalf("corrupt config must not fail open: %v", err)
	}
	if warned == "" {
		t.Errorf("expected a warning for the corrupt config")
	}
	if st.GetPolicy().Security != SecurityAllowlist {
		t.Errorf("expected factory defaults after corrupt load")
	}
}

func TestOpen_CoercesUnknownEnums(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	content := "defaults:\n  security: yolo\n  ask: maybe\n  ask_fallback: shrug\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	pol := st.GetPolicy()
	if pol.Security != SecurityDeny {
		t.Errorf("unknown security mode must coerce to deny, got %q", pol.Security)
	}
	if pol.Ask != AskOff {
		t.Errorf("unknown ask mode must coerce to off, got %q", pol.Ask)
	}
	if pol.AskFallback != FallbackDeny {
		t.Errorf("unknown ask fallback must coerce to deny, got %q", pol.AskFallback)
	}
}

func TestAllowlist_CRUD(t *testing.T) {
	st := testStore(t)

	entry, err := st.AddAllowlistEntry("npm*", "node tooling")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatalf("add must assign id and timestamp: %+v", entry)
	}

	got := st.GetAllowlistEntry(entry.ID)
	if got == nil || got.Pattern != "npm*" || got.Description != "node tooling" {
		t.Fatalf("get: %+v", got)
	}
	if st.GetAllowlistEntry("no-such-id") != nil {
		t.Errorf("unknown id must return nil")
	}

	pattern := "yarn*"
	updated, err := st.UpdateAllowlistEntry(entry.ID, EntryUpdate{Pattern: &pattern})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Pattern != "yarn*" {
		t.Errorf("update pattern: %+v", updated)
	}
	if updated.Description != "node tooling" {
		t.Errorf("update must leave untouched fields alone: %+v", updated)
	}
	if updated.ID != entry.ID || !updated.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("id and createdAt are immutable: %+v vs %+v", updated, entry)
	}

	if missing, err := st.UpdateAllowlistEntry("no-such-id", EntryUpdate{Pattern: &pattern}); err != nil || missing != nil {
		t.Errorf("update unknown id: got %+v, %v", missing, err)
	}

	removed, err := st.RemoveAllowlistEntry(entry.ID)
	if err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	if removed, _ := st.RemoveAllowlistEntry(entry.ID); removed {
		t.Errorf("second remove must report false")
	}
	if len(st.ListAllowlist()) != 0 {
		t.Errorf("allowlist should be empty after remove")
	}
}

func TestAllowlist_EmptyPatternRejected(t *testing.T) {
	st := testStore(t)
	if _, err := st.AddAllowlistEntry("", ""); err == nil {
		t.Errorf("empty pattern must be rejected")
	}
}

func TestMutationsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	entry, err := st.AddAllowlistEntry("git status", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddSafeBin("jq"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetPolicy(Policy{Security: SecurityFull, Ask: AskAlways, AskFallback: FallbackAllow}); err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same file sees every mutation.
	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.GetAllowlistEntry(entry.ID); got == nil || got.Pattern != "git status" {
		t.Errorf("allowlist entry not persisted: %+v", got)
	}
	if !contains(reopened.ListSafeBins(), "jq") {
		t.Errorf("safe bin not persisted")
	}
	if reopened.GetPolicy().Security != SecurityFull {
		t.Errorf("policy not persisted: %+v", reopened.GetPolicy())
	}
}

func TestSafeBins_SetSemantics(t *testing.T) {
	st := testStore(t)

	if added, err := st.AddSafeBin("jq"); err != nil || !added {
		t.Fatalf("first add: %v %v", added, err)
	}
	if added, err := st.AddSafeBin("jq"); err != nil || added {
		t.Fatalf("second add must be a no-op: %v %v", added, err)
	}

	count := 0
	for _, bin := range st.ListSafeBins() {
		if bin == "jq" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("jq listed %d times, want 1", count)
	}

	if removed, err := st.RemoveSafeBin("jq"); err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	if removed, _ := st.RemoveSafeBin("jq"); removed {
		t.Errorf("removing an absent bin must be a silent no-op")
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	st := testStore(t)

	if _, err := st.AddAllowlistEntry("npm*", "node tooling"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddSafeBin("jq"); err != nil {
		t.Fatal(err)
	}

	before := st.ExportConfig()
	if err := st.ImportConfig(before); err != nil {
		t.Fatalf("import: %v", err)
	}
	after := st.ExportConfig()

	if before.Defaults != after.Defaults {
		t.Errorf("policy changed: %+v vs %+v", before.Defaults, after.Defaults)
	}
	if len(before.Allowlist) != len(after.Allowlist) {
		t.Fatalf("allowlist length changed: %d vs %d", len(before.Allowlist), len(after.Allowlist))
	}
	for i := range before.Allowlist {
		if before.Allowlist[i].ID != after.Allowlist[i].ID || before.Allowlist[i].Pattern != after.Allowlist[i].Pattern {
			t.Errorf("allowlist entry %d changed", i)
		}
	}
	if !reflect.DeepEqual(before.SafeBins, after.SafeBins) {
		t.Errorf("safe bins changed: %v vs %v", before.SafeBins, after.SafeBins)
	}
}

func TestImport_MergesPartialConfig(t *testing.T) {
	st := testStore(t)

	err := st.ImportConfig(Config{
		Allowlist: []AllowlistEntry{{Pattern: "make *"}},
		SafeBins:  []string{"jq", "ls"}, // ls already present
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	entries := st.ListAllowlist()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID == "" || entries[0].CreatedAt.IsZero() {
		t.Errorf("imported entry must get id and timestamp: %+v", entries[0])
	}

	lsCount := 0
	for _, bin := range st.ListSafeBins() {
		if bin == "ls" {
			lsCount++
		}
	}
	if lsCount != 1 {
		t.Errorf("import must not duplicate safe bins")
	}
	if !contains(st.ListSafeBins(), "jq") {
		t.Errorf("imported safe bin missing")
	}

	// An absent defaults section leaves the policy untouched.
	if st.GetPolicy().Security != SecurityAllowlist {
		t.Errorf("partial import must not reset policy")
	}
}

func TestReset_RestoresFactoryDefaults(t *testing.T) {
	st := testStore(t)

	if _, err := st.AddAllowlistEntry("npm*", ""); err != nil {
		t.Fatal(err)
	}
	if err := st.SetPolicy(Policy{Security: SecurityFull, Ask: AskAlways, AskFallback: FallbackAllow}); err != nil {
		t.Fatal(err)
	}
	if err := st.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if len(st.ListAllowlist()) != 0 {
		t.Errorf("reset must clear the allowlist")
	}
	if st.GetPolicy().Security != SecurityAllowlist {
		t.Errorf("reset must restore the default policy")
	}
}

func TestPersist_NoPartialFileVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddSafeBin("jq"); err != nil {
		t.Fatal(err)
	}

	// The write is temp-then-rename: the directory never holds a stray
	// temp file after a successful mutation.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".config-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
