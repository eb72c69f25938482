package dataset

import "time"

// Order statuses as they appear in the orders file. Anything else is kept
// verbatim; status is informational except for Delivered, which gates the
// delay computation.
const (
	StatusDelivered = "delivered"
	StatusShipped   = "shipped"
	StatusCanceled  = "canceled"
)

type Order struct {
	ID          string
	CustomerID  string
	Status      string
	PurchasedAt time.Time
	ApprovedAt  *time.Time
	CarrierAt   *time.Time
	DeliveredAt *time.Time
	EstimatedAt time.Time
}

type Customer struct {
	ID        string
	UniqueID  string
	ZipPrefix string
	City      string
	State     string
}

type OrderItem struct {
	OrderID   string
	Seq       int
	ProductID string
	SellerID  string
	Price     float64
	Freight   float64
}

type Product struct {
	ID       string
	Category string
	WeightG  *float64
	LengthCM *float64
	HeightCM *float64
	WidthCM  *float64
}

type Seller struct {
	ID        string
	ZipPrefix string
	City      string
	State     string
}

type Review struct {
	ID        string
	OrderID   string
	Score     int
	Title     string
	Message   string
	CreatedAt time.Time
}

type Payment struct {
	OrderID      string
	Sequential   int
	Type         string
	Installments int
	Value        float64
}

type Geolocation struct {
	ZipPrefix string
	Lat       float64
	Lng       float64
	City      string
	State     string
}

type CategoryTranslation struct {
	Category string
	English  string
}

// Lead is a marketing-qualified lead from the funnel dataset.
type Lead struct {
	MQLID        string
	FirstContact time.Time
	LandingPage  string
	Origin       string
}

// ClosedDeal joins back to a Lead by MQLID; its presence means the lead
// converted.
type ClosedDeal struct {
	MQLID           string
	SellerID        string
	Segment         string
	LeadType        string
	WonAt           time.Time
	DeclaredRevenue *float64
}

// Bundle holds every raw table after ingestion. Stages downstream never
// mutate it; they derive their own copies.
type Bundle struct {
	Orders       []Order
	Customers    []Customer
	OrderItems   []OrderItem
	Products     []Product
	Sellers      []Seller
	Reviews      []Review
	Payments     []Payment
	Geolocations []Geolocation
	Translations []CategoryTranslation
	Leads        []Lead
	ClosedDeals  []ClosedDeal
}
