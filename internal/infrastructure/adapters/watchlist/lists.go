package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

// Entry is one listed name.
type Entry struct {
	Name string `json:"name" yaml:"name"`
	List string `json:"list" yaml:"list"`
}

// LocalLists matches customers against in-process name lists. Exact name
// matches are hits; names containing every token of an entry are possible
// matches. It backs development and test environments.
type LocalLists struct {
	lists map[entities.ScreeningType][]Entry
}

// NewLocalLists indexes entries by screening type. Missing types screen clear.
func NewLocalLists(lists map[entities.ScreeningType][]Entry) *LocalLists {
	return &LocalLists{lists: lists}
}

// DefaultLocalLists is a small fixture set whose names are fictitious.
func DefaultLocalLists() *LocalLists {
	return NewLocalLists(map[entities.ScreeningType][]Entry{
		entities.ScreeningTypeSanctions: {
			{Name: "Ivan Sanctioned", List: "UN Consolidated"},
			{Name: "Blocked Trading LLC", List: "OFAC SDN"},
			{Name: "محمد المحظور", List: "Saudi Local List"},
		},
		entities.ScreeningTypePEP: {
			{Name: "Minister Example", List: "PEP Register"},
		},
		entities.ScreeningTypeAdverseMedia: {
			{Name: "Fraud Headline", List: "Adverse Media"},
		},
	})
}

// LoadLocalLists reads a YAML file keyed by screening type:
//
//	sanctions:
//	  - {name: "Blocked Trading LLC", list: "OFAC SDN"}
func LoadLocalLists(path string) (*LocalLists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read screening lists: %w", err)
	}
	var lists map[entities.ScreeningType][]Entry
	if err := yaml.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("failed to parse screening lists: %w", err)
	}
	for screeningType := range lists {
		if !validType(screeningType) {
			return nil, fmt.Errorf("unknown screening type %q in %s", screeningType, path)
		}
	}
	return NewLocalLists(lists), nil
}

func validType(t entities.ScreeningType) bool {
	for _, known := range entities.AllScreeningTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (l *LocalLists) Name() string {
	return "local-lists"
}

type localAnswer struct {
	Matches []Entry `json:"matches"`
}

func (l *LocalLists) Screen(ctx context.Context, customer *entities.Customer, screeningType entities.ScreeningType) (*entities.ScreeningMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := l.tokens(customer.DisplayName())
	match := &entities.ScreeningMatch{Status: entities.ScreeningStatusClear, MatchedLists: []string{}}
	var matched []Entry

	for _, entry := range l.lists[screeningType] {
		listed := l.tokens(entry.Name)
		if len(listed) == 0 {
			continue
		}
		switch {
		case equalTokens(name, listed):
			match.Status = entities.ScreeningStatusHit
			match.MatchScore = 1
		case containsTokens(name, listed):
			if match.Status != entities.ScreeningStatusHit {
				match.Status = entities.ScreeningStatusPossibleMatch
			}
			if match.MatchScore < 0.75 {
				match.MatchScore = 0.75
			}
		default:
			continue
		}
		matched = append(matched, entry)
		if !contains(match.MatchedLists, entry.List) {
			match.MatchedLists = append(match.MatchedLists, entry.List)
		}
	}

	raw, _ := json.Marshal(localAnswer{Matches: matched})
	match.RawResponse = string(raw)
	return match, nil
}

// tokens case-folds and NFC-normalises a name and splits it on anything that
// is not a letter or digit.
func (l *LocalLists) tokens(name string) []string {
	// Casers hold state, so one is built per call.
	folded := cases.Fold().String(norm.NFC.String(name))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsTokens(have, want []string) bool {
	for _, w := range want {
		if !contains(have, w) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
