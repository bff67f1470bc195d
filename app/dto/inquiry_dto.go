package dto

import "time"

// CreateInquiryRequest is a customer's purchase interest in a listing
type CreateInquiryRequest struct {
	CarID             uint       `json:"car_id" validate:"required"`
	CustomerName      string     `json:"customer_name" validate:"required,max=255"`
	CustomerPhone     string     `json:"customer_phone" validate:"required,min=6,max=32"`
	CallPreference    string     `json:"call_preference,omitempty" validate:"omitempty,oneof=now schedule"`
	ScheduledCallTime *time.Time `json:"scheduled_call_time,omitempty"`
}

// AssignInquiryRequest routes an inquiry to a sales agent
type AssignInquiryRequest struct {
	ID      uint `json:"-"`
	AgentID uint `json:"agent_id" validate:"required"`
}

// UpdateInquiryStatusRequest moves an inquiry between statuses.
// Closing requires Remarks; IsSeriousCustomer is only honoured when closing.
type UpdateInquiryStatusRequest struct {
	ID                uint    `json:"-"`
	Status            string  `json:"status" validate:"required,oneof=new contacted closed"`
	Remarks           *string `json:"remarks,omitempty" validate:"omitempty,max=5000"`
	PrivateNotes      *string `json:"private_notes,omitempty" validate:"omitempty,max=5000"`
	IsSeriousCustomer *bool   `json:"is_serious_customer,omitempty"`
}

// UpdateInquiryNotesRequest replaces the assignee's private notes
type UpdateInquiryNotesRequest struct {
	ID           uint   `json:"-"`
	PrivateNotes string `json:"private_notes" validate:"max=5000"`
}

// ListInquiriesRequest filters the back-office inquiry table
type ListInquiriesRequest struct {
	Status     *string `json:"status,omitempty"`
	CarID      *uint   `json:"car_id,omitempty"`
	AssignedTo *uint   `json:"assigned_to,omitempty"`
	IsSerious  *bool   `json:"is_serious,omitempty"`
	Page       int     `json:"page,omitempty"`
	PageSize   int     `json:"page_size,omitempty"`
}

// InquiryDTO is the external view of an inquiry.
// PrivateNotes is only populated for the assignee.
type InquiryDTO struct {
	ID                uint    `json:"id"`
	UUID              string  `json:"uuid"`
	CarID             uint    `json:"car_id"`
	CarSummary        string  `json:"car_summary"`
	CustomerName      string  `json:"customer_name"`
	CustomerPhone     string  `json:"customer_phone"`
	CustomerID        *uint   `json:"customer_id,omitempty"`
	Status            string  `json:"status"`
	AssignedTo        *uint   `json:"assigned_to,omitempty"`
	Remarks           string  `json:"remarks"`
	PrivateNotes      *string `json:"private_notes,omitempty"`
	IsSeriousCustomer bool    `json:"is_serious_customer"`
	CallPreference    string  `json:"call_preference"`
	ScheduledCallTime *string `json:"scheduled_call_time,omitempty"`
	SubmittedAt       string  `json:"submitted_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// ListInquiriesResponse is a page of inquiries
type ListInquiriesResponse struct {
	Items      []InquiryDTO   `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
