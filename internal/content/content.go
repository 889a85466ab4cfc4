package content

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/goodtune/wordbuddy/internal/random"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultPools []byte

// Item is one vocabulary entry.
type Item struct {
	ID          string `yaml:"id" json:"id"`
	Word        string `yaml:"word" json:"word"`
	Translation string `yaml:"translation" json:"translation"`
	Emoji       string `yaml:"emoji" json:"emoji"`
	Example     string `yaml:"example" json:"example"`
}

// Sentence is a word-order template.
type Sentence struct {
	ID        string   `yaml:"id" json:"id"`
	Words     []string `yaml:"words" json:"words"`
	Canonical string   `yaml:"canonical" json:"canonical"`
}

// Pools holds the read-only content consumed by drills and mini-games.
type Pools struct {
	Items     []Item     `yaml:"items"`
	Sentences []Sentence `yaml:"sentences"`
}

// Default returns the built-in pools.
func Default() (*Pools, error) {
	return parse(defaultPools)
}

// Load reads pools from a YAML file. An empty path returns the defaults.
func Load(path string) (*Pools, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Pools, error) {
	var p Pools
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}
	for i := range p.Sentences {
		if p.Sentences[i].Canonical == "" {
			p.Sentences[i].Canonical = strings.Join(p.Sentences[i].Words, " ")
		}
	}
	return &p, nil
}

// Item returns the vocabulary item with the given id.
func (p *Pools) Item(id string) (Item, bool) {
	for _, item := range p.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// Validate reports structural problems in the pools. The engine itself never
// validates content; this is for the validate command.
func (p *Pools) Validate() error {
	if len(p.Items) < 6 {
		return fmt.Errorf("need at least 6 vocabulary items, have %d", len(p.Items))
	}
	seen := make(map[string]bool, len(p.Items))
	for _, item := range p.Items {
		if item.ID == "" || item.Word == "" || item.Translation == "" {
			return fmt.Errorf("item %q is missing id, word or translation", item.ID)
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate item id %q", item.ID)
		}
		seen[item.ID] = true
	}
	if len(p.Sentences) == 0 {
		return fmt.Errorf("need at least one sentence template")
	}
	for _, s := range p.Sentences {
		if strings.Join(s.Words, " ") != s.Canonical {
			return fmt.Errorf("sentence %q words do not join to its canonical form", s.ID)
		}
	}
	return nil
}

// Sample draws n distinct items (fewer if the pool is smaller).
func Sample(src random.Source, items []Item, n int) []Item {
	if n > len(items) {
		n = len(items)
	}
	perm := random.Perm(src, len(items))
	out := make([]Item, n)
	for i := 0; i < n; i++ {
		out[i] = items[perm[i]]
	}
	return out
}

// Distractors draws up to n distinct items that are not exclude.
func Distractors(src random.Source, items []Item, exclude Item, n int) []Item {
	others := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ID != exclude.ID {
			others = append(others, item)
		}
	}
	return Sample(src, others, n)
}

// Options returns the target plus up to n-1 distractors, shuffled.
func Options(src random.Source, items []Item, target Item, n int) []Item {
	opts := append([]Item{target}, Distractors(src, items, target, n-1)...)
	random.Shuffle(src, opts)
	return opts
}
