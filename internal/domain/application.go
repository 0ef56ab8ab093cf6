package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// MonthlyPayment computes the flat-rate installment for an approved financing
// amount: amount*(1+rate/100) spread evenly over the plan months, rounded to
// the nearest cent.
func MonthlyPayment(amount int64, ratePercent float64, months int) int64 {
	if months <= 0 {
		return 0
	}
	total := float64(amount) * (1 + ratePercent/100)
	return int64(math.Round(total / float64(months)))
}

// FinancingApplication is a consumer financing request for a single
// purchasable item under a payment plan. Status moves only through
// FinancingWorkflow transitions.
type FinancingApplication struct {
	ID             uuid.UUID       `json:"id"`
	PublicToken    uuid.UUID       `json:"public_token"`
	AccountID      string          `json:"account_id"`
	Item           ItemRef         `json:"item"`
	PlanID         string          `json:"plan_id"`
	PlanMonths     int             `json:"plan_months"`
	PlanRate       float64         `json:"plan_rate"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	IDNumber       string          `json:"id_number"`
	Employer       string          `json:"employer,omitempty"`
	MonthlyIncome  int64           `json:"monthly_income"`
	Status         string          `json:"status"`
	BankResponse   json.RawMessage `json:"bank_response,omitempty"`
	ApprovedAmount *int64          `json:"approved_amount,omitempty"`
	MonthlyDue     *int64          `json:"monthly_payment,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// EnterpriseOrder is a bulk device order by an organization, approved through
// a credit check and fulfilled through the EnterpriseWorkflow tail.
type EnterpriseOrder struct {
	ID              uuid.UUID       `json:"id"`
	PublicToken     uuid.UUID       `json:"public_token"`
	AccountID       string          `json:"account_id"`
	BundleID        string          `json:"bundle_id"`
	Quantity        int             `json:"quantity"`
	CompanyName     string          `json:"company_name"`
	ContactName     string          `json:"contact_name"`
	ContactEmail    string          `json:"contact_email"`
	ContactPhone    string          `json:"contact_phone"`
	DeliveryAddress string          `json:"delivery_address"`
	UnitPrice       int64           `json:"unit_price"`
	TotalAmount     int64           `json:"total_amount"`
	Status          string          `json:"status"`
	BankResponse    json.RawMessage `json:"bank_response,omitempty"`
	ApprovedAmount  *int64          `json:"approved_amount,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FinancingPlan is the read model for an installment plan.
type FinancingPlan struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Months       int     `json:"months"`
	InterestRate float64 `json:"interest_rate"`
	Active       bool    `json:"active"`
}

// EnterpriseBundle is the read model for a bulk purchase bundle.
type EnterpriseBundle struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	MinimumQuantity int    `json:"minimum_quantity"`
	PricePerDevice  int64  `json:"price_per_device"`
	Active          bool   `json:"active"`
}
