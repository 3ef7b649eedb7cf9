package search

import (
	"fmt"
	"strings"

	"venuedir/models"
)

// Scope narrows search results.
type Scope string

const (
	ScopeAll       Scope = "all"
	ScopeFavorites Scope = "favorites"
	ScopeDrinkBars Scope = "drinkBars"
	ScopeBotecos   Scope = "botecos"
	ScopeIzakayas  Scope = "izakayas"
)

// Scopes lists every scope in display order.
var Scopes = []Scope{ScopeAll, ScopeFavorites, ScopeDrinkBars, ScopeBotecos, ScopeIzakayas}

// category substrings per scope, matched case-insensitively against merchant categories
var scopeCategories = map[Scope][]string{
	ScopeDrinkBars: {"drink", "coquetel", "cocktail"},
	ScopeBotecos:   {"boteco"},
	ScopeIzakayas:  {"izakaya"},
}

// ParseScope accepts a scope name, ignoring case. Empty means ScopeAll.
func ParseScope(s string) (Scope, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ScopeAll, nil
	}
	for _, sc := range Scopes {
		if strings.EqualFold(s, string(sc)) {
			return sc, nil
		}
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// filter keeps the merchants in scope. favorites is only consulted for ScopeFavorites.
func (s Scope) filter(merchants []models.Merchant, favorites map[string]struct{}) []models.Merchant {
	if s == ScopeAll || s == "" {
		return merchants
	}
	out := make([]models.Merchant, 0, len(merchants))
	for _, m := range merchants {
		if s.matches(m, favorites) {
			out = append(out, m)
		}
	}
	return out
}

func (s Scope) matches(m models.Merchant, favorites map[string]struct{}) bool {
	if s == ScopeFavorites {
		_, ok := favorites[m.ID]
		return ok
	}
	needles := scopeCategories[s]
	for _, c := range m.Categories {
		lc := strings.ToLower(c)
		for _, n := range needles {
			if strings.Contains(lc, n) {
				return true
			}
		}
	}
	return false
}
