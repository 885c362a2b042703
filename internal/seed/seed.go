// Package seed loads reference data: the admin account from configuration
// and, optionally, a small sample catalog with stock and demo accounts.
// Every step is keyed on a natural identifier so reruns are no-ops.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/angelmondragon/pharmacy-backend/pkg/security"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	sampleStock         = 100
	sampleMinStockLevel = 20
)

var costRatio = decimal.RequireFromString("0.70")

type sampleCategory struct {
	name        string
	description string
}

type sampleMedicine struct {
	name                 string
	sku                  string
	category             string
	description          string
	dosage               string
	manufacturer         string
	price                string
	requiresPrescription bool
}

type sampleAccount struct {
	username string
	password string
	email    string
	fullName string
	phone    string
	address  string
	role     enums.Role
}

var categories = []sampleCategory{
	{"Pain Relief", "Medications for pain management"},
	{"Antibiotics", "Medications for bacterial infections"},
	{"Vitamins & Supplements", "Nutritional supplements and vitamins"},
	{"Cold & Flu", "Medications for cold and flu symptoms"},
}

var medicines = []sampleMedicine{
	{"Paracetamol 500mg", "MED001", "Pain Relief", "Pain reliever and fever reducer", "500mg", "Generic Pharma", "2.50", false},
	{"Ibuprofen 400mg", "MED002", "Pain Relief", "Anti-inflammatory pain reliever", "400mg", "Generic Pharma", "3.50", false},
	{"Amoxicillin 500mg", "MED003", "Antibiotics", "Broad-spectrum antibiotic", "500mg", "BioPharma", "12.00", true},
	{"Vitamin C 1000mg", "MED004", "Vitamins & Supplements", "Immune system support", "1000mg", "VitaHealth", "4.50", false},
	{"Cough Syrup", "MED005", "Cold & Flu", "Relief for dry and productive cough", "5ml", "MediCare", "6.50", false},
}

var accounts = []sampleAccount{
	{"pharmacist1", "pharm1234", "pharmacist@pharmacy.local", "Nguyen Van A", "+84123456789", "123 Pharmacy Street", enums.RolePharmacist},
	{"customer1", "cust12345", "customer@pharmacy.local", "Tran Thi B", "+84987654321", "456 Customer Street", enums.RoleCustomer},
}

// Seeder writes reference data through gorm.
type Seeder struct {
	db       *gorm.DB
	cfg      config.SeedConfig
	password config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time
}

// New builds a seeder.
func New(db *gorm.DB, cfg config.SeedConfig, password config.PasswordConfig, logg *logger.Logger) (*Seeder, error) {
	if db == nil {
		return nil, errors.New("db required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Seeder{
		db:       db,
		cfg:      cfg,
		password: password,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run seeds the admin account and, when enabled, the sample data. A failing
// step does not stop the others; all failures are returned together.
func (s *Seeder) Run(ctx context.Context) error {
	var err error
	if s.cfg.AdminPassword != "" {
		err = multierr.Append(err, s.ensureAccount(ctx, sampleAccount{
			username: s.cfg.AdminUsername,
			password: s.cfg.AdminPassword,
			email:    s.cfg.AdminEmail,
			fullName: "Administrator",
			role:     enums.RoleAdmin,
		}))
	} else {
		s.logg.Warn(ctx, "seed admin password not set; skipping admin account")
	}

	if !s.cfg.SampleData {
		return err
	}

	byName := make(map[string]*models.Category, len(categories))
	for _, c := range categories {
		cat, cerr := s.ensureCategory(ctx, c)
		if cerr != nil {
			err = multierr.Append(err, cerr)
			continue
		}
		byName[c.name] = cat
	}
	for _, m := range medicines {
		err = multierr.Append(err, s.ensureMedicine(ctx, m, byName[m.category]))
	}
	for _, a := range accounts {
		err = multierr.Append(err, s.ensureAccount(ctx, a))
	}

	if err == nil {
		s.logg.Info(ctx, "seed complete")
	}
	return err
}

func (s *Seeder) ensureCategory(ctx context.Context, c sampleCategory) (*models.Category, error) {
	desc := c.description
	cat := models.Category{Name: c.name, Description: &desc}
	if err := s.db.WithContext(ctx).Where(models.Category{Name: c.name}).FirstOrCreate(&cat).Error; err != nil {
		return nil, fmt.Errorf("seed category %s: %w", c.name, err)
	}
	return &cat, nil
}

func (s *Seeder) ensureMedicine(ctx context.Context, m sampleMedicine, category *models.Category) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		price := decimal.RequireFromString(m.price)
		med := models.Medicine{
			Name:                 m.name,
			SKU:                  m.sku,
			Description:          &m.description,
			Dosage:               &m.dosage,
			Manufacturer:         &m.manufacturer,
			Price:                price,
			RequiresPrescription: m.requiresPrescription,
			IsActive:             true,
		}
		if category != nil {
			med.CategoryID = &category.ID
		}
		if err := tx.Where(models.Medicine{SKU: m.sku}).FirstOrCreate(&med).Error; err != nil {
			return fmt.Errorf("seed medicine %s: %w", m.sku, err)
		}

		batch := "BATCH-" + m.sku
		expiry := s.now().AddDate(1, 0, 0)
		record := models.InventoryRecord{
			MedicineID:    med.ID,
			Quantity:      sampleStock,
			MinStockLevel: sampleMinStockLevel,
			BatchNumber:   &batch,
			ExpiryDate:    &expiry,
			CostPrice:     decimal.NewNullDecimal(price.Mul(costRatio).Round(2)),
		}
		if err := tx.Where(models.InventoryRecord{MedicineID: med.ID}).FirstOrCreate(&record).Error; err != nil {
			return fmt.Errorf("seed inventory %s: %w", m.sku, err)
		}
		return nil
	})
}

func (s *Seeder) ensureAccount(ctx context.Context, a sampleAccount) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("username = ?", a.username).Count(&count).Error; err != nil {
		return fmt.Errorf("seed account %s: %w", a.username, err)
	}
	if count > 0 {
		return nil
	}

	hash, err := security.HashPassword(a.password, s.password)
	if err != nil {
		return fmt.Errorf("seed account %s: %w", a.username, err)
	}
	account := models.Account{
		Username:     a.username,
		Email:        a.email,
		PasswordHash: hash,
		FullName:     a.fullName,
		Role:         a.role,
	}
	if a.phone != "" {
		account.Phone = &a.phone
	}
	if a.address != "" {
		account.Address = &a.address
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return fmt.Errorf("seed account %s: %w", a.username, err)
	}
	return nil
}
