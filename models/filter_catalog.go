package models

import (
	"cmp"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/amirphl/Kuruma-no-Ichiba/utils"
)

// FilterCatalogID is the primary key of the single global catalog row
const FilterCatalogID uint = 1

var (
	ErrCatalogUnknownBrand   = errors.New("brand is not in the catalog")
	ErrCatalogUnknownModel   = errors.New("model is not in the catalog")
	ErrCatalogUnknownYear    = errors.New("year is not in the catalog")
	ErrCatalogDuplicateEntry = errors.New("entry already exists in the catalog")
	ErrCatalogEmptyName      = errors.New("name must not be empty")
	ErrCatalogInvalidYear    = errors.New("year must be positive")
	ErrCatalogOrphanModels   = errors.New("models reference a brand that is not in the catalog")
)

// CatalogDocument is the brand/model/year vocabulary.
// Every key of Models is a member of Brands. Years are kept in descending order.
type CatalogDocument struct {
	Brands []string            `json:"brands" yaml:"brands"`
	Models map[string][]string `json:"models" yaml:"models"`
	Years  []int               `json:"years" yaml:"years"`
}

// NewCatalogDocument returns an empty document
func NewCatalogDocument() CatalogDocument {
	return CatalogDocument{
		Brands: []string{},
		Models: map[string][]string{},
		Years:  []int{},
	}
}

// Clone returns a deep copy
func (d CatalogDocument) Clone() CatalogDocument {
	out := CatalogDocument{
		Brands: slices.Clone(d.Brands),
		Models: make(map[string][]string, len(d.Models)),
		Years:  slices.Clone(d.Years),
	}
	if out.Brands == nil {
		out.Brands = []string{}
	}
	if out.Years == nil {
		out.Years = []int{}
	}
	for k, v := range d.Models {
		out.Models[k] = slices.Clone(v)
	}
	return out
}

// Normalize trims names, drops duplicates and blanks, and sorts every list.
// Brands and models sort ascending, years descending.
func (d CatalogDocument) Normalize() CatalogDocument {
	out := NewCatalogDocument()
	out.Brands = uniqueNames(d.Brands)
	for brand, models := range d.Models {
		key := strings.TrimSpace(brand)
		if key == "" {
			continue
		}
		out.Models[key] = append(out.Models[key], models...)
	}
	for brand, models := range out.Models {
		out.Models[brand] = uniqueNames(models)
	}
	for _, y := range d.Years {
		if !slices.Contains(out.Years, y) {
			out.Years = append(out.Years, y)
		}
	}
	slices.SortFunc(out.Years, func(a, b int) int { return cmp.Compare(b, a) })
	return out
}

// Validate checks the structural invariants of a normalized document
func (d CatalogDocument) Validate() error {
	for brand := range d.Models {
		if !d.HasBrand(brand) {
			return fmt.Errorf("%w: %s", ErrCatalogOrphanModels, brand)
		}
	}
	for _, y := range d.Years {
		if y <= 0 {
			return ErrCatalogInvalidYear
		}
	}
	return nil
}

func (d CatalogDocument) HasBrand(name string) bool {
	return slices.Contains(d.Brands, name)
}

func (d CatalogDocument) HasModel(brand, model string) bool {
	return slices.Contains(d.Models[brand], model)
}

func (d CatalogDocument) HasYear(y int) bool {
	return slices.Contains(d.Years, y)
}

func (d *CatalogDocument) AddBrand(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrCatalogEmptyName
	}
	if d.HasBrand(name) {
		return fmt.Errorf("%w: brand %s", ErrCatalogDuplicateEntry, name)
	}
	d.Brands = append(d.Brands, name)
	slices.Sort(d.Brands)
	if d.Models == nil {
		d.Models = map[string][]string{}
	}
	return nil
}

// RenameBrand renames the brand together with its models key
func (d *CatalogDocument) RenameBrand(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrCatalogEmptyName
	}
	idx := slices.Index(d.Brands, oldName)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCatalogUnknownBrand, oldName)
	}
	if oldName == newName {
		return nil
	}
	if d.HasBrand(newName) {
		return fmt.Errorf("%w: brand %s", ErrCatalogDuplicateEntry, newName)
	}
	d.Brands[idx] = newName
	slices.Sort(d.Brands)
	if models, ok := d.Models[oldName]; ok {
		delete(d.Models, oldName)
		d.Models[newName] = models
	}
	return nil
}

// RemoveBrand removes the brand and its model set
func (d *CatalogDocument) RemoveBrand(name string) error {
	idx := slices.Index(d.Brands, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCatalogUnknownBrand, name)
	}
	d.Brands = slices.Delete(d.Brands, idx, idx+1)
	delete(d.Models, name)
	return nil
}

func (d *CatalogDocument) AddModel(brand, name string) error {
	name = strings.TrimSpace(name)
	if !d.HasBrand(brand) {
		return fmt.Errorf("%w: %s", ErrCatalogUnknownBrand, brand)
	}
	if name == "" {
		return ErrCatalogEmptyName
	}
	if d.HasModel(brand, name) {
		return fmt.Errorf("%w: model %s %s", ErrCatalogDuplicateEntry, brand, name)
	}
	if d.Models == nil {
		d.Models = map[string][]string{}
	}
	models := append(d.Models[brand], name)
	slices.Sort(models)
	d.Models[brand] = models
	return nil
}

func (d *CatalogDocument) RenameModel(brand, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if !d.HasBrand(brand) {
		return fmt.Errorf("%w: %s", ErrCatalogUnknownBrand, brand)
	}
	if newName == "" {
		return ErrCatalogEmptyName
	}
	models := d.Models[brand]
	idx := slices.Index(models, oldName)
	if idx < 0 {
		return fmt.Errorf("%w: %s %s", ErrCatalogUnknownModel, brand, oldName)
	}
	if oldName == newName {
		return nil
	}
	if slices.Contains(models, newName) {
		return fmt.Errorf("%w: model %s %s", ErrCatalogDuplicateEntry, brand, newName)
	}
	models[idx] = newName
	slices.Sort(models)
	return nil
}

func (d *CatalogDocument) RemoveModel(brand, name string) error {
	if !d.HasBrand(brand) {
		return fmt.Errorf("%w: %s", ErrCatalogUnknownBrand, brand)
	}
	models := d.Models[brand]
	idx := slices.Index(models, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s %s", ErrCatalogUnknownModel, brand, name)
	}
	d.Models[brand] = slices.Delete(models, idx, idx+1)
	return nil
}

func (d *CatalogDocument) AddYear(y int) error {
	if y <= 0 {
		return ErrCatalogInvalidYear
	}
	if d.HasYear(y) {
		return fmt.Errorf("%w: year %d", ErrCatalogDuplicateEntry, y)
	}
	d.Years = append(d.Years, y)
	slices.SortFunc(d.Years, func(a, b int) int { return cmp.Compare(b, a) })
	return nil
}

func (d *CatalogDocument) RemoveYear(y int) error {
	idx := slices.Index(d.Years, y)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrCatalogUnknownYear, y)
	}
	d.Years = slices.Delete(d.Years, idx, idx+1)
	return nil
}

// Value implements the driver.Valuer interface for CatalogDocument
func (d CatalogDocument) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for CatalogDocument
func (d *CatalogDocument) Scan(value any) error {
	if value == nil {
		*d = NewCatalogDocument()
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CatalogDocument", value)
	}

	var out CatalogDocument
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*d = out.Clone()
	return nil
}

// FilterCatalog is the single versioned catalog row
type FilterCatalog struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	Version   int64           `gorm:"not null;default:0" json:"version"`
	Document  CatalogDocument `gorm:"type:jsonb;not null" json:"document"`
	UpdatedBy *uint           `json:"updated_by,omitempty"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

func (FilterCatalog) TableName() string {
	return "filter_catalog"
}

func (c *FilterCatalog) BeforeCreate(tx *gorm.DB) error {
	if c.ID == 0 {
		c.ID = FilterCatalogID
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Snapshot returns a copy that shares no memory with the receiver
func (c *FilterCatalog) Snapshot() FilterCatalog {
	out := *c
	out.Document = c.Document.Clone()
	if c.UpdatedBy != nil {
		out.UpdatedBy = utils.ToPtr(*c.UpdatedBy)
	}
	return out
}

func uniqueNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}
