package dto

// FilterCatalogDTO is a versioned snapshot of the brand/model/year vocabulary
type FilterCatalogDTO struct {
	Version   int64               `json:"version"`
	Brands    []string            `json:"brands"`
	Models    map[string][]string `json:"models"`
	Years     []int               `json:"years"`
	UpdatedAt string              `json:"updated_at,omitempty"`
}

// UpdateFilterCatalogRequest replaces the whole document if Version is still current
type UpdateFilterCatalogRequest struct {
	Version int64               `json:"version" validate:"min=0"`
	Brands  []string            `json:"brands" validate:"required"`
	Models  map[string][]string `json:"models"`
	Years   []int               `json:"years" validate:"required"`
}

// Catalog operation names
const (
	CatalogOpAddBrand    = "add_brand"
	CatalogOpRenameBrand = "rename_brand"
	CatalogOpRemoveBrand = "remove_brand"
	CatalogOpAddModel    = "add_model"
	CatalogOpRenameModel = "rename_model"
	CatalogOpRemoveModel = "remove_model"
	CatalogOpAddYear     = "add_year"
	CatalogOpRemoveYear  = "remove_year"
)

// CatalogOperationRequest applies a single mutation to the catalog at Version
type CatalogOperationRequest struct {
	Version int64  `json:"version" validate:"min=0"`
	Op      string `json:"op" validate:"required,oneof=add_brand rename_brand remove_brand add_model rename_model remove_model add_year remove_year"`
	Brand   string `json:"brand,omitempty"`
	Model   string `json:"model,omitempty"`
	NewName string `json:"new_name,omitempty"`
	Year    int    `json:"year,omitempty"`
}
