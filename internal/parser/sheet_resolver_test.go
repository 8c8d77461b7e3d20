package parser

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

func TestResolveAll_AliasFallback(t *testing.T) {
	t.Parallel()

	available := []string{"Analyse comparative", "Entreprise", "Alignement avec le besoin", "Solutions"}
	got, err := NewSheetResolver(nil).ResolveAll(available)
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	want := map[model.SheetRole]string{
		model.RoleCompanies: "Entreprise",
		model.RoleSolutions: "Solutions",
		model.RoleAnalysis:  "Analyse comparative",
		model.RoleAlignment: "Alignement avec le besoin",
	}
	for role, name := range want {
		if got[role] != name {
			t.Fatalf("role %s resolved to %q, want %q", role, got[role], name)
		}
	}
}

func TestResolveSheet_AliasOrderWins(t *testing.T) {
	t.Parallel()

	got, err := ResolveSheet(model.RoleCompanies, []string{"Entreprises", "Entreprise"}, []string{"Entreprise", " Entreprises "})
	if err != nil {
		t.Fatalf("ResolveSheet: %v", err)
	}
	if got != " Entreprises " {
		t.Fatalf("expected first alias with physical spelling, got %q", got)
	}
}

func TestResolveSheet_NotFoundListsSheets(t *testing.T) {
	t.Parallel()

	available := []string{"Feuil1", "Données"}
	_, err := NewSheetResolver(nil).Resolve(model.RoleAlignment, available)
	var nf *model.SheetNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected SheetNotFoundError, got %v", err)
	}
	if nf.Role != model.RoleAlignment {
		t.Fatalf("role = %s", nf.Role)
	}
	if len(nf.Available) != 2 || nf.Available[0] != "Feuil1" || nf.Available[1] != "Données" {
		t.Fatalf("available not verbatim: %q", nf.Available)
	}
}

func TestResolveSheet_ReturnsMemberOfAvailable(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	noise := []string{"Feuil1", "Résumé", " Notes ", "Solutions (old)", "Entreprises 2"}
	for _, role := range model.SheetRoles {
		aliases := DefaultSheetAliases[role]
		for i := 0; i < 200; i++ {
			available := make([]string, 0, 6)
			for _, n := range noise {
				if rng.Intn(2) == 0 {
					available = append(available, n)
				}
			}
			alias := aliases[rng.Intn(len(aliases))]
			if rng.Intn(2) == 0 {
				alias = "  " + alias + " "
			}
			pos := rng.Intn(len(available) + 1)
			available = append(available[:pos], append([]string{alias}, available[pos:]...)...)

			got, err := ResolveSheet(role, aliases, available)
			if err != nil {
				t.Fatalf("role %s available %q: %v", role, available, err)
			}
			found := false
			for _, a := range available {
				if a == got {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("resolved %q is not an element of %q", got, available)
			}
		}
	}
}

func TestNewSheetResolver_Overrides(t *testing.T) {
	t.Parallel()

	r := NewSheetResolver(map[model.SheetRole][]string{model.RoleAnalysis: {"Benchmark"}})
	if got, err := r.Resolve(model.RoleAnalysis, []string{"Benchmark"}); err != nil || got != "Benchmark" {
		t.Fatalf("override not applied: %q %v", got, err)
	}
	if got := r.Aliases(model.RoleCompanies); len(got) != 2 {
		t.Fatalf("default aliases lost: %q", got)
	}
}
