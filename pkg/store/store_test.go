package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lemonberrylabs/equations/pkg/expr"
	"github.com/lemonberrylabs/equations/pkg/types"
)

func mustParse(t *testing.T, text string) expr.Node {
	t.Helper()
	tree, err := expr.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return tree
}

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, New())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "equations.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		defer s.Close()
		fn(t, s)
	})
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		for i, text := range []string{"3x + 2y - z", "x^2 + y^2", "x / y"} {
			eq, err := s.Create(text, mustParse(t, text))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if want := fmt.Sprint(i + 1); eq.ID != want {
				t.Errorf("id: got %q, want %q", eq.ID, want)
			}
			if eq.Text != text {
				t.Errorf("text: got %q, want %q", eq.Text, text)
			}
		}
	})
}

func TestGetAndNotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		created, err := s.Create("x + y", mustParse(t, "x + y"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := s.Get(created.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		v, err := expr.Evaluate(got.Tree, expr.Bindings{"x": 3, "y": 4})
		if err != nil || v != 7 {
			t.Errorf("evaluate stored tree: got %v, %v", v, err)
		}

		_, err = s.Get("999")
		if !types.HasTag(err, types.TagNotFound) {
			t.Errorf("expected NotFound, got %v", err)
		}
	})
}

func TestListOrderedByID(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		for i := 0; i < 12; i++ {
			text := fmt.Sprintf("x + %d", i)
			if _, err := s.Create(text, mustParse(t, text)); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}

		list, err := s.List()
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 12 {
			t.Fatalf("expected 12 equations, got %d", len(list))
		}
		for i, eq := range list {
			if want := fmt.Sprint(i + 1); eq.ID != want {
				t.Errorf("position %d: got id %q, want %q", i, eq.ID, want)
			}
		}
	})
}

func TestDelete(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		first, _ := s.Create("x", mustParse(t, "x"))
		if err := s.Delete(first.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(first.ID); !types.HasTag(err, types.TagNotFound) {
			t.Errorf("expected NotFound after delete, got %v", err)
		}
		if err := s.Delete(first.ID); !types.HasTag(err, types.TagNotFound) {
			t.Errorf("expected NotFound on second delete, got %v", err)
		}

		// ids are not reused
		second, _ := s.Create("y", mustParse(t, "y"))
		if second.ID != "2" {
			t.Errorf("id after delete: got %q, want %q", second.ID, "2")
		}
	})
}

func TestConcurrentCreate(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		tree := mustParse(t, "x + 1")

		var wg sync.WaitGroup
		ids := make(chan string, 50)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				eq, err := s.Create("x + 1", tree)
				if err != nil {
					t.Errorf("Create: %v", err)
					return
				}
				ids <- eq.ID
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[string]bool)
		for id := range ids {
			if seen[id] {
				t.Errorf("duplicate id %q", id)
			}
			seen[id] = true
		}
		if len(seen) != 50 {
			t.Errorf("expected 50 unique ids, got %d", len(seen))
		}
	})
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "equations.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if _, err := s.Create("(x + y) * z", mustParse(t, "(x + y) * z")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	eq, err := reopened.Get("1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	v, err := expr.Evaluate(eq.Tree, expr.Bindings{"x": 2, "y": 3, "z": 4})
	if err != nil || v != 20 {
		t.Errorf("evaluate reloaded tree: got %v, %v", v, err)
	}

	next, err := reopened.Create("x", mustParse(t, "x"))
	if err != nil {
		t.Fatalf("Create after reopen: %v", err)
	}
	if next.ID != "2" {
		t.Errorf("id after reopen: got %q, want %q", next.ID, "2")
	}
}
