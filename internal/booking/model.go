// Package booking defines the lead-capture record a visitor submits from the
// landing page, its fixed enumerations and its wire payload.
package booking

import (
	"encoding/json"
	"fmt"
)

// Category is the product category a visitor shoots for.
type Category string

// Plan is the pricing tier a visitor picks.
type Plan string

const (
	CategoryCosmetics Category = "Cosmetics & Skincare"
	CategoryTech      Category = "Tech & Gadgets"
	CategoryFashion   Category = "Fashion & Apparel"
	CategoryFood      Category = "Food & Beverage"
	CategoryOther     Category = "Other"
)

const (
	PlanEssential Plan = "Essential Pack ($99)"
	PlanGrowth    Plan = "Brand Growth ($149)"
	PlanSignature Plan = "Signature Pack ($299)"
	PlanCustom    Plan = "Custom Project"
)

// Categories lists the allowed categories in display order. The first entry is the default.
var Categories = []Category{CategoryCosmetics, CategoryTech, CategoryFashion, CategoryFood, CategoryOther}

// Plans lists the allowed plans in display order. The first entry is the default.
var Plans = []Plan{PlanEssential, PlanGrowth, PlanSignature, PlanCustom}

// DefaultCategory is preselected on a fresh form.
const DefaultCategory = CategoryCosmetics

// DefaultPlan is preselected on a fresh form.
const DefaultPlan = PlanEssential

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Valid reports whether p is one of Plans.
func (p Plan) Valid() bool {
	for _, v := range Plans {
		if v == p {
			return true
		}
	}
	return false
}

// Request is a booking request as entered on the form.
type Request struct {
	FullName string   `json:"full_name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Category Category `json:"category" validate:"category"`
	Plan     Plan     `json:"plan" validate:"plan"`
	Message  string   `json:"message" validate:"required"`
}

// NewRequest returns a request with empty text fields and default selections.
func NewRequest() Request {
	return Request{
		Category: DefaultCategory,
		Plan:     DefaultPlan,
	}
}

// Payload is the row shape the remote store expects.
type Payload struct {
	FullName string `json:"full_name" dynamodbav:"full_name"`
	Email    string `json:"email" dynamodbav:"email"`
	Category string `json:"category" dynamodbav:"category"`
	Plan     string `json:"plan" dynamodbav:"plan"`
	Message  string `json:"message" dynamodbav:"message"`
}

// Payload maps r onto the wire shape without trimming or defaulting anything.
func (r Request) Payload() Payload {
	return Payload{
		FullName: r.FullName,
		Email:    r.Email,
		Category: string(r.Category),
		Plan:     string(r.Plan),
		Message:  r.Message,
	}
}

// Request converts a wire payload back into a Request.
func (p Payload) Request() Request {
	return Request{
		FullName: p.FullName,
		Email:    p.Email,
		Category: Category(p.Category),
		Plan:     Plan(p.Plan),
		Message:  p.Message,
	}
}

// PayloadFromJSON decodes a single wire payload.
func PayloadFromJSON(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("booking: decode payload: %w", err)
	}
	return p, nil
}
