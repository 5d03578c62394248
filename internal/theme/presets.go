package theme

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/stagecast/internal/model"
)

//go:embed presets.yaml
var presetsYAML []byte

// Catalogue は名前で引けるテーマプリセットの集合。
type Catalogue struct {
	names  []string
	themes map[string]model.Theme
}

type presetDoc struct {
	Presets []struct {
		Name  string    `yaml:"name"`
		Theme yaml.Node `yaml:"theme"`
	} `yaml:"presets"`
}

// LoadPresets は埋め込みのプリセット定義を読み込む。
func LoadPresets() (*Catalogue, error) {
	return ParsePresets(presetsYAML)
}

// ParsePresets はYAMLからプリセットを読み込む。
// 各プリセットは既定テーマに記述されたフィールドだけを上書きしたものになる。
func ParsePresets(data []byte) (*Catalogue, error) {
	var doc presetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("プリセット定義の読み込みに失敗しました: %w", err)
	}

	c := &Catalogue{themes: make(map[string]model.Theme, len(doc.Presets))}
	for _, p := range doc.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("名前のないプリセットがあります")
		}
		if _, dup := c.themes[p.Name]; dup {
			return nil, fmt.Errorf("プリセット名が重複しています: %s", p.Name)
		}
		t := model.DefaultTheme()
		if err := p.Theme.Decode(&t); err != nil {
			return nil, fmt.Errorf("プリセット %s の読み込みに失敗しました: %w", p.Name, err)
		}
		if t.Name == "" || t.Name == model.DefaultTheme().Name {
			t.Name = p.Name
		}
		c.themes[p.Name] = t
		c.names = append(c.names, p.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Names はプリセット名を昇順で返す。
func (c *Catalogue) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Presets はすべてのプリセットを名前順で返す。
func (c *Catalogue) Presets() []model.Theme {
	out := make([]model.Theme, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.themes[n])
	}
	return out
}

// Preset は名前でプリセットを返す。
func (c *Catalogue) Preset(name string) (model.Theme, bool) {
	t, ok := c.themes[name]
	return t, ok
}
