package quota

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk layout of a quota table:
//
//	quotas:
//	  videos:analyze: {limit: 3, period: daily}
type tableFile struct {
	Quotas Table `yaml:"quotas"`
}

// ParseTable decodes a YAML quota table and validates it.
func ParseTable(data []byte) (Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse quota table: %w", err)
	}
	if f.Quotas == nil {
		f.Quotas = Table{}
	}
	if err := f.Quotas.Validate(); err != nil {
		return nil, err
	}
	return f.Quotas, nil
}
