package dataset

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Manifest maps dataset names to the CSV file names inside the data
// directory. A missing manifest file falls back to the stock Olist export
// names.
type Manifest struct {
	Orders       string `yaml:"orders" validate:"required"`
	Customers    string `yaml:"customers" validate:"required"`
	OrderItems   string `yaml:"order_items" validate:"required"`
	Products     string `yaml:"products" validate:"required"`
	Sellers      string `yaml:"sellers" validate:"required"`
	Reviews      string `yaml:"order_reviews" validate:"required"`
	Payments     string `yaml:"order_payments" validate:"required"`
	Geolocation  string `yaml:"geolocation" validate:"required"`
	Translations string `yaml:"category_translations" validate:"required"`
	Leads        string `yaml:"qualified_leads" validate:"required"`
	ClosedDeals  string `yaml:"closed_deals" validate:"required"`
}

func DefaultManifest() Manifest {
	return Manifest{
		Orders:       "olist_orders_dataset.csv",
		Customers:    "olist_customers_dataset.csv",
		OrderItems:   "olist_order_items_dataset.csv",
		Products:     "olist_products_dataset.csv",
		Sellers:      "olist_sellers_dataset.csv",
		Reviews:      "olist_order_reviews_dataset.csv",
		Payments:     "olist_order_payments_dataset.csv",
		Geolocation:  "olist_geolocation_dataset.csv",
		Translations: "product_category_name_translation.csv",
		Leads:        "olist_marketing_qualified_leads_dataset.csv",
		ClosedDeals:  "olist_closed_deals_dataset.csv",
	}
}

// LoadManifest parses a YAML manifest. An empty path returns the default
// file names.
func LoadManifest(path string) (Manifest, error) {
	if path == "" {
		return DefaultManifest(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	var m Manifest
	if err := yaml.NewDecoder(f).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	if err := validator.New().Struct(m); err != nil {
		return Manifest{}, fmt.Errorf("incomplete manifest %s: %w", path, err)
	}

	return m, nil
}
