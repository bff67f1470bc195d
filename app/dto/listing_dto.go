package dto

// ListingInput is the editable content of a listing.
// Only size and URL format are checked at binding. Every semantic rule is reported field by field by the listing flow.
type ListingInput struct {
	Brand             string   `json:"brand" validate:"max=100"`
	Model             string   `json:"model" validate:"max=100"`
	Year              int      `json:"year"`
	RegistrationYear  *int     `json:"registration_year,omitempty"`
	Price             int64    `json:"price"`
	KmRun             int64    `json:"km_run"`
	Fuel              string   `json:"fuel" validate:"max=20"`
	Transmission      string   `json:"transmission" validate:"max=20"`
	Ownership         int      `json:"ownership"`
	Color             string   `json:"color" validate:"max=50"`
	EngineCC          int      `json:"engine_cc"`
	AdditionalDetails *string  `json:"additional_details,omitempty" validate:"omitempty,max=5000"`
	Images            []string `json:"images" validate:"omitempty,dive,url"`
	Badges            []string `json:"badges,omitempty" validate:"omitempty,dive,max=50"`
	InstagramReelURL  *string  `json:"instagram_reel_url,omitempty" validate:"omitempty,url"`
}

// CreateListingRequest submits a new listing for review
type CreateListingRequest struct {
	ListingInput
}

// UpdateListingRequest replaces the content of a listing and sends it back to review
type UpdateListingRequest struct {
	ID uint `json:"-"`
	ListingInput
}

// TransitionListingRequest approves or rejects a pending listing
type TransitionListingRequest struct {
	ID     uint   `json:"-"`
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// GetListingRequest reads one listing
type GetListingRequest struct {
	ID          uint `json:"-"`
	WithSummary bool `json:"with_summary"`
}

// ListListingsRequest filters the back-office listing table
type ListListingsRequest struct {
	Status      *string `json:"status,omitempty"`
	Brand       *string `json:"brand,omitempty"`
	SubmittedBy *uint   `json:"submitted_by,omitempty"`
	Page        int     `json:"page,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

// ListingDTO is the external view of a car
type ListingDTO struct {
	ID                uint     `json:"id"`
	UUID              string   `json:"uuid"`
	Brand             string   `json:"brand"`
	Model             string   `json:"model"`
	Year              int      `json:"year"`
	RegistrationYear  *int     `json:"registration_year,omitempty"`
	Price             int64    `json:"price"`
	KmRun             int64    `json:"km_run"`
	Fuel              string   `json:"fuel"`
	Transmission      string   `json:"transmission"`
	Ownership         int      `json:"ownership"`
	Color             string   `json:"color"`
	EngineCC          int      `json:"engine_cc"`
	AdditionalDetails *string  `json:"additional_details,omitempty"`
	Images            []string `json:"images"`
	Badges            []string `json:"badges"`
	InstagramReelURL  *string  `json:"instagram_reel_url,omitempty"`
	Status            string   `json:"status"`
	SubmittedBy       uint     `json:"submitted_by"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

// GetListingResponse carries one listing and its optional generated summary
type GetListingResponse struct {
	Listing ListingDTO `json:"listing"`
	Summary *string    `json:"summary,omitempty"`
}

// ListListingsResponse is a page of listings
type ListListingsResponse struct {
	Items      []ListingDTO   `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// DeleteListingResponse reports the outcome of a cascading delete
type DeleteListingResponse struct {
	ID                uint  `json:"id"`
	InquiriesDeleted  int64 `json:"inquiries_deleted"`
	ListingWasDeleted bool  `json:"listing_deleted"`
}
