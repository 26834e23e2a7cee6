package eval

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dataset is a collection of labelled delivery notes.
type Dataset struct {
	Name  string `json:"name" yaml:"name"`
	Cases []Case `json:"cases" yaml:"cases"`
}

// Case is one document with the values the parser should extract.
//
// Fields maps record JSON names (order_ref, recipient_name, ship_address,
// pdf_notes, doc_author, doc_email, doc_phone, client_phone, service_tag)
// to expected values. Only listed fields are checked. Items holds the
// expected item rows in compact form; they are checked when listed or when
// NoItems is set.
type Case struct {
	File     string            `json:"file" yaml:"file"`
	Category string            `json:"category,omitempty" yaml:"category"` // e.g. single-page, multi-page, detached
	Fields   map[string]string `json:"fields,omitempty" yaml:"fields"`
	Items    []string          `json:"items,omitempty" yaml:"items"`
	NoItems  bool              `json:"no_items,omitempty" yaml:"no_items"`
}

func (c Case) checksItems() bool { return len(c.Items) > 0 || c.NoItems }

// LoadDataset reads a YAML (or JSON) dataset. Relative case paths are
// resolved against the dataset file's directory.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading dataset: %w", err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if ds.Name == "" {
		ds.Name = filepath.Base(path)
	}

	dir := filepath.Dir(path)
	for i, c := range ds.Cases {
		if c.File == "" {
			return Dataset{}, fmt.Errorf("dataset %s: case %d has no file", path, i+1)
		}
		if !filepath.IsAbs(c.File) {
			ds.Cases[i].File = filepath.Join(dir, c.File)
		}
		for name := range c.Fields {
			if _, ok := fieldGetters[name]; !ok {
				return Dataset{}, fmt.Errorf("dataset %s: case %d: unknown field %q", path, i+1, name)
			}
		}
	}
	return ds, nil
}
