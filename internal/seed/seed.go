// Package seed bootstraps the catalog and the synthetic historical
// transaction table on startup. Generation is deterministic so repeated
// boots produce the same analytics snapshot.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/config"
	historydomain "github.com/smallbiznis/quotient/internal/history/domain"
	historyrepo "github.com/smallbiznis/quotient/internal/history/repository"
	pkgdb "github.com/smallbiznis/quotient/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	generatorSeed = 7
	historyMonths = 24
)

// Result reports what the seeder ensured. Constructors that need seeded
// data (the analytics engine) take it as a dependency so fx orders them
// after seeding.
type Result struct {
	Products     int64
	Transactions int64
}

// Run migrates the collaborator tables and fills them when empty.
func Run(db *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) (Result, error) {
	if db == nil {
		return Result{}, errors.New("seed database handle is required")
	}
	log = log.Named("seed")

	if err := db.AutoMigrate(&catalogdomain.Product{}, &historydomain.Transaction{}); err != nil {
		return Result{}, err
	}

	if !cfg.SeedDemoData {
		log.Info("demo data seeding disabled")
		return Result{}, nil
	}

	ctx := context.Background()
	var result Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products, err := ensureProducts(ctx, tx, node)
		if err != nil {
			return err
		}
		transactions, err := ensureTransactions(ctx, tx, node, products)
		if err != nil {
			return err
		}
		result = Result{Products: int64(len(products)), Transactions: transactions}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	log.Info("seed complete",
		zap.Int64("products", result.Products),
		zap.Int64("transactions", result.Transactions),
	)
	return result, nil
}

func ensureProducts(ctx context.Context, tx *gorm.DB, node *snowflake.Node) ([]catalogdomain.Product, error) {
	products := sampleProducts()
	for i := range products {
		products[i].ID = node.Generate()
		err := tx.WithContext(ctx).Create(&products[i]).Error
		if err == nil {
			continue
		}
		if !pkgdb.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// SKU already seeded by a previous boot: the stored row wins.
		if err := tx.WithContext(ctx).Where("sku = ?", products[i].SKU).First(&products[i]).Error; err != nil {
			return nil, err
		}
	}
	return products, nil
}

func ensureTransactions(ctx context.Context, tx *gorm.DB, node *snowflake.Node, products []catalogdomain.Product) (int64, error) {
	count, err := historyrepo.Count(ctx, tx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return count, nil
	}

	rows := generateTransactions(node, products)
	if err := historyrepo.BulkInsert(ctx, tx, rows); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

type seedCustomer struct {
	id      string
	segment string
	// discount is the typical price concession the customer negotiates,
	// which gives the promotional model a real signal to find.
	discount float64
	orders   int
}

func seedCustomers() []seedCustomer {
	segments := []struct {
		segment  string
		discount float64
		orders   int
	}{
		{"academic", 0.18, 4},
		{"biotech_startup", 0.10, 6},
		{"pharma_enterprise", 0.04, 9},
		{"research_institute", 0.14, 5},
	}

	var customers []seedCustomer
	for _, s := range segments {
		for i := 1; i <= 6; i++ {
			customers = append(customers, seedCustomer{
				id:       fmt.Sprintf("%s-%02d", s.segment, i),
				segment:  s.segment,
				discount: s.discount,
				orders:   s.orders,
			})
		}
	}
	return customers
}

func generateTransactions(node *snowflake.Node, products []catalogdomain.Product) []historydomain.Transaction {
	rng := rand.New(rand.NewSource(generatorSeed))
	customers := seedCustomers()
	start := time.Now().UTC().AddDate(0, -historyMonths, 0)

	// Seasonal demand multipliers: spring and fall grant cycles.
	seasonal := map[time.Month]float64{
		time.January: 0.9, time.February: 0.95, time.March: 1.3, time.April: 1.25,
		time.May: 1.0, time.June: 0.95, time.July: 0.85, time.August: 0.9,
		time.September: 1.3, time.October: 1.2, time.November: 1.0, time.December: 0.8,
	}

	var rows []historydomain.Transaction
	for month := 0; month < historyMonths; month++ {
		monthStart := start.AddDate(0, month, 0)
		demand := seasonal[monthStart.Month()]

		for _, c := range customers {
			orders := int(float64(c.orders)*demand*0.5 + rng.Float64())
			for o := 0; o < orders; o++ {
				p := products[rng.Intn(len(products))]
				day := rng.Intn(28)

				discount := c.discount + rng.Float64()*0.1 - 0.05
				if discount < 0 {
					discount = 0
				}
				quantity := 1 + rng.Intn(10)
				if demand > 1.1 {
					quantity += rng.Intn(5)
				}

				rows = append(rows, historydomain.Transaction{
					ID:         node.Generate(),
					CustomerID: c.id,
					SKU:        p.SKU,
					Segment:    c.segment,
					Category:   string(p.Category),
					Date:       monthStart.AddDate(0, 0, day),
					Quantity:   quantity,
					UnitPrice:  round2(p.BasePrice * (1 - discount)),
					BasePrice:  p.BasePrice,
				})
			}
		}
	}
	return rows
}

func sampleProducts() []catalogdomain.Product {
	return []catalogdomain.Product{
		{SKU: "REA-003", Name: "PCR Master Mix Kit", Category: catalogdomain.CategoryReagents, Supplier: "ThermoFisher", WeightKg: ptr(0.8), BasePrice: 320.00, HSCode: "3822"},
		{SKU: "REA-014", Name: "Taq DNA Polymerase", Category: catalogdomain.CategoryReagents, Supplier: "NEB", WeightKg: ptr(0.3), BasePrice: 185.00, HSCode: "3822"},
		{SKU: "REA-027", Name: "Antibody Staining Panel", Category: catalogdomain.CategoryReagents, Supplier: "BioLegend", BasePrice: 410.00, HSCode: "3822"},
		{SKU: "CHE-001", Name: "Analytical Grade Methanol", Category: catalogdomain.CategoryChemicals, Supplier: "Sigma-Aldrich", WeightKg: ptr(2.5), BasePrice: 185.00, HSCode: "2905"},
		{SKU: "CHE-019", Name: "HPLC Buffer Concentrate", Category: catalogdomain.CategoryChemicals, Supplier: "Merck", WeightKg: ptr(1.2), BasePrice: 95.00, HSCode: "3822"},
		{SKU: "LAB-002", Name: "Digital pH Meter", Category: catalogdomain.CategoryLabEquipment, Supplier: "Agilent", WeightKg: ptr(1.2), BasePrice: 450.00, HSCode: "9027"},
		{SKU: "LAB-011", Name: "Benchtop Microcentrifuge", Category: catalogdomain.CategoryLabEquipment, Supplier: "Eppendorf", WeightKg: ptr(9.5), BasePrice: 1250.00, HSCode: "8421"},
		{SKU: "CON-005", Name: "Sterile Pipette Tips 1000uL", Category: catalogdomain.CategoryConsumables, Supplier: "VWR", WeightKg: ptr(0.4), BasePrice: 48.00, HSCode: "3926"},
		{SKU: "CON-008", Name: "96-Well Culture Plates", Category: catalogdomain.CategoryConsumables, Supplier: "Corning", WeightKg: ptr(0.6), BasePrice: 72.00, HSCode: "3926"},
		{SKU: "INS-001", Name: "UV-Vis Spectrophotometer", Category: catalogdomain.CategoryInstruments, Supplier: "Agilent", WeightKg: ptr(14.0), BasePrice: 8500.00, HSCode: "9027"},
		{SKU: "INS-004", Name: "Real-Time PCR System", Category: catalogdomain.CategoryInstruments, Supplier: "Bio-Rad", BasePrice: 24500.00, HSCode: "9027"},
		{SKU: "GLS-002", Name: "Borosilicate Beaker Set", Category: catalogdomain.CategoryLabEquipment, Supplier: "DWK Life Sciences", WeightKg: ptr(2.1), BasePrice: 64.00, HSCode: "7020"},
	}
}

func ptr(v float64) *float64 { return &v }

func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
