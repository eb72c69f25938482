package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// LoadStats counts what happened to one input file. Rows that fail type
// coercion are dropped, never repaired.
type LoadStats struct {
	Dataset string `json:"dataset"`
	Read    int    `json:"rows_read"`
	Dropped int    `json:"rows_dropped"`
}

type LoadReport []LoadStats

// Load reads every dataset named by the manifest from dir. Files are read
// once; unparseable rows are counted and skipped.
func Load(dir string, m Manifest) (*Bundle, LoadReport, error) {
	b := &Bundle{}
	var report LoadReport

	load := func(name, file string, fn func(*csvTable) int) error {
		t, err := openCSV(filepath.Join(dir, file))
		if err != nil {
			return fmt.Errorf("dataset %s: %w", name, err)
		}
		dropped := fn(t)
		stats := LoadStats{Dataset: name, Read: len(t.rows), Dropped: dropped}
		report = append(report, stats)
		log.Debug().Str("dataset", name).Int("rows", stats.Read).Int("dropped", dropped).Msg("dataset loaded")
		return nil
	}

	steps := []struct {
		name string
		file string
		fn   func(*csvTable) int
	}{
		{"orders", m.Orders, b.loadOrders},
		{"customers", m.Customers, b.loadCustomers},
		{"order_items", m.OrderItems, b.loadOrderItems},
		{"products", m.Products, b.loadProducts},
		{"sellers", m.Sellers, b.loadSellers},
		{"order_reviews", m.Reviews, b.loadReviews},
		{"order_payments", m.Payments, b.loadPayments},
		{"geolocation", m.Geolocation, b.loadGeolocations},
		{"category_translations", m.Translations, b.loadTranslations},
		{"qualified_leads", m.Leads, b.loadLeads},
		{"closed_deals", m.ClosedDeals, b.loadClosedDeals},
	}

	for _, s := range steps {
		if err := load(s.name, s.file, s.fn); err != nil {
			return nil, nil, err
		}
	}

	return b, report, nil
}

// csvTable is one parsed CSV file with a header-name index.
type csvTable struct {
	cols map[string]int
	rows [][]string
}

func openCSV(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows = append(rows, rec)
	}

	return &csvTable{cols: cols, rows: rows}, nil
}

func (t *csvTable) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

const (
	timeLayout = "2006-01-02 15:04:05"
	dateLayout = "2006-01-02"
)

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}

func parseTimeOpt(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseFloatOpt(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (b *Bundle) loadOrders(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		purchased, err := parseTime(t.get(row, "order_purchase_timestamp"))
		if err != nil {
			dropped++
			continue
		}
		estimated, err := parseTime(t.get(row, "order_estimated_delivery_date"))
		if err != nil {
			dropped++
			continue
		}
		approved, err := parseTimeOpt(t.get(row, "order_approved_at"))
		if err != nil {
			dropped++
			continue
		}
		carrier, err := parseTimeOpt(t.get(row, "order_delivered_carrier_date"))
		if err != nil {
			dropped++
			continue
		}
		delivered, err := parseTimeOpt(t.get(row, "order_delivered_customer_date"))
		if err != nil {
			dropped++
			continue
		}

		b.Orders = append(b.Orders, Order{
			ID:          t.get(row, "order_id"),
			CustomerID:  t.get(row, "customer_id"),
			Status:      t.get(row, "order_status"),
			PurchasedAt: purchased,
			ApprovedAt:  approved,
			CarrierAt:   carrier,
			DeliveredAt: delivered,
			EstimatedAt: estimated,
		})
	}
	return dropped
}

func (b *Bundle) loadCustomers(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		b.Customers = append(b.Customers, Customer{
			ID:        t.get(row, "customer_id"),
			UniqueID:  t.get(row, "customer_unique_id"),
			ZipPrefix: t.get(row, "customer_zip_code_prefix"),
			City:      t.get(row, "customer_city"),
			State:     t.get(row, "customer_state"),
		})
	}
	return 0
}

func (b *Bundle) loadOrderItems(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		seq, err := strconv.Atoi(t.get(row, "order_item_id"))
		if err != nil {
			dropped++
			continue
		}
		price, err := strconv.ParseFloat(t.get(row, "price"), 64)
		if err != nil {
			dropped++
			continue
		}
		freight, err := strconv.ParseFloat(t.get(row, "freight_value"), 64)
		if err != nil {
			dropped++
			continue
		}

		b.OrderItems = append(b.OrderItems, OrderItem{
			OrderID:   t.get(row, "order_id"),
			Seq:       seq,
			ProductID: t.get(row, "product_id"),
			SellerID:  t.get(row, "seller_id"),
			Price:     price,
			Freight:   freight,
		})
	}
	return dropped
}

func (b *Bundle) loadProducts(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		weight, err := parseFloatOpt(t.get(row, "product_weight_g"))
		if err != nil {
			dropped++
			continue
		}
		length, err := parseFloatOpt(t.get(row, "product_length_cm"))
		if err != nil {
			dropped++
			continue
		}
		height, err := parseFloatOpt(t.get(row, "product_height_cm"))
		if err != nil {
			dropped++
			continue
		}
		width, err := parseFloatOpt(t.get(row, "product_width_cm"))
		if err != nil {
			dropped++
			continue
		}

		b.Products = append(b.Products, Product{
			ID:       t.get(row, "product_id"),
			Category: t.get(row, "product_category_name"),
			WeightG:  weight,
			LengthCM: length,
			HeightCM: height,
			WidthCM:  width,
		})
	}
	return dropped
}

func (b *Bundle) loadSellers(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		b.Sellers = append(b.Sellers, Seller{
			ID:        t.get(row, "seller_id"),
			ZipPrefix: t.get(row, "seller_zip_code_prefix"),
			City:      t.get(row, "seller_city"),
			State:     t.get(row, "seller_state"),
		})
	}
	return 0
}

func (b *Bundle) loadReviews(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		score, err := strconv.Atoi(t.get(row, "review_score"))
		if err != nil {
			dropped++
			continue
		}
		created, err := parseTime(t.get(row, "review_creation_date"))
		if err != nil {
			dropped++
			continue
		}

		b.Reviews = append(b.Reviews, Review{
			ID:        t.get(row, "review_id"),
			OrderID:   t.get(row, "order_id"),
			Score:     score,
			Title:     t.get(row, "review_comment_title"),
			Message:   t.get(row, "review_comment_message"),
			CreatedAt: created,
		})
	}
	return dropped
}

func (b *Bundle) loadPayments(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		seq, err := strconv.Atoi(t.get(row, "payment_sequential"))
		if err != nil {
			dropped++
			continue
		}
		installments, err := strconv.Atoi(t.get(row, "payment_installments"))
		if err != nil {
			dropped++
			continue
		}
		value, err := strconv.ParseFloat(t.get(row, "payment_value"), 64)
		if err != nil {
			dropped++
			continue
		}

		b.Payments = append(b.Payments, Payment{
			OrderID:      t.get(row, "order_id"),
			Sequential:   seq,
			Type:         t.get(row, "payment_type"),
			Installments: installments,
			Value:        value,
		})
	}
	return dropped
}

func (b *Bundle) loadGeolocations(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		lat, err := strconv.ParseFloat(t.get(row, "geolocation_lat"), 64)
		if err != nil {
			dropped++
			continue
		}
		lng, err := strconv.ParseFloat(t.get(row, "geolocation_lng"), 64)
		if err != nil {
			dropped++
			continue
		}

		b.Geolocations = append(b.Geolocations, Geolocation{
			ZipPrefix: t.get(row, "geolocation_zip_code_prefix"),
			Lat:       lat,
			Lng:       lng,
			City:      t.get(row, "geolocation_city"),
			State:     t.get(row, "geolocation_state"),
		})
	}
	return dropped
}

func (b *Bundle) loadTranslations(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		b.Translations = append(b.Translations, CategoryTranslation{
			Category: t.get(row, "product_category_name"),
			English:  t.get(row, "product_category_name_english"),
		})
	}
	return 0
}

func (b *Bundle) loadLeads(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		contact, err := parseTime(t.get(row, "first_contact_date"))
		if err != nil {
			dropped++
			continue
		}

		b.Leads = append(b.Leads, Lead{
			MQLID:        t.get(row, "mql_id"),
			FirstContact: contact,
			LandingPage:  t.get(row, "landing_page_id"),
			Origin:       t.get(row, "origin"),
		})
	}
	return dropped
}

func (b *Bundle) loadClosedDeals(t *csvTable) (dropped int) {
	for _, row := range t.rows {
		won, err := parseTime(t.get(row, "won_date"))
		if err != nil {
			dropped++
			continue
		}
		revenue, err := parseFloatOpt(t.get(row, "declared_monthly_revenue"))
		if err != nil {
			dropped++
			continue
		}

		b.ClosedDeals = append(b.ClosedDeals, ClosedDeal{
			MQLID:           t.get(row, "mql_id"),
			SellerID:        t.get(row, "seller_id"),
			Segment:         t.get(row, "business_segment"),
			LeadType:        t.get(row, "lead_type"),
			WonAt:           won,
			DeclaredRevenue: revenue,
		})
	}
	return dropped
}
