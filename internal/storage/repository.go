package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"childcare/internal/core"
	"childcare/internal/log"
	"childcare/internal/store"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", log.FieldComponent, log.ComponentStorage, "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const centreColumns = `id, name, COALESCE(api_id, ''), COALESCE(moe_number, ''),
	COALESCE(u2_licensed, 0), COALESCE(total_licensed, 0), COALESCE(nzbn, ''),
	COALESCE(overdue_invoice_amount, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCentre(s rowScanner) (core.Centre, error) {
	var c core.Centre
	err := s.Scan(&c.ID, &c.Name, &c.APIID, &c.MOENumber, &c.U2Licensed, &c.TotalLicensed, &c.NZBN, &c.OverdueInvoiceAmount)
	return c, err
}

func (r *SQLiteRepository) ListCentres(ctx context.Context) ([]core.Centre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+centreColumns+` FROM centres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list centres: %w", err)
	}
	defer rows.Close()

	var out []core.Centre
	for rows.Next() {
		c, err := scanCentre(rows)
		if err != nil {
			return nil, fmt.Errorf("scan centre: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCentre(ctx context.Context, id int64) (core.Centre, error) {
	c, err := scanCentre(r.db.QueryRowContext(ctx, `SELECT `+centreColumns+` FROM centres WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Centre{}, fmt.Errorf("centre %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Centre{}, fmt.Errorf("get centre %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) EnsureCentre(ctx context.Context, c core.Centre) (core.Centre, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Centre{}, err
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO centres (name, api_id, moe_number, u2_licensed, total_licensed, nzbn)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			api_id = COALESCE(excluded.api_id, centres.api_id),
			moe_number = COALESCE(excluded.moe_number, centres.moe_number),
			u2_licensed = COALESCE(excluded.u2_licensed, centres.u2_licensed),
			total_licensed = COALESCE(excluded.total_licensed, centres.total_licensed),
			nzbn = COALESCE(excluded.nzbn, centres.nzbn),
			updated_at = CURRENT_TIMESTAMP
		RETURNING `+centreColumns,
		c.Name, nullString(c.APIID), nullString(c.MOENumber),
		nullInt(c.U2Licensed), nullInt(c.TotalLicensed), nullString(c.NZBN))

	saved, err := scanCentre(row)
	if err != nil {
		return core.Centre{}, fmt.Errorf("ensure centre %q: %w", c.Name, err)
	}
	return saved, nil
}

func (r *SQLiteRepository) SetOverdueInvoiceAmount(ctx context.Context, centreID int64, amount string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE centres
		SET overdue_invoice_amount = ?, overdue_updated_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, amount, centreID)
	if err != nil {
		return fmt.Errorf("set overdue amount for centre %d: %w", centreID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("centre %d: %w", centreID, store.ErrNotFound)
	}

	slog.InfoContext(ctx, "Overdue invoice amount saved to SQLite",
		"centre_id", centreID,
		"amount", amount)
	return nil
}

func (r *SQLiteRepository) ListOccupancy(ctx context.Context, monthYear string) ([]core.Occupancy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.centre_id, c.name, COALESCE(c.api_id, ''), o.month_year, o.u2, o.o2, o.total
		FROM occupancy o
		JOIN centres c ON c.id = o.centre_id
		WHERE o.month_year = ?
		ORDER BY c.name`, monthYear)
	if err != nil {
		return nil, fmt.Errorf("list occupancy for %s: %w", monthYear, err)
	}
	defer rows.Close()

	var out []core.Occupancy
	for rows.Next() {
		var o core.Occupancy
		if err := rows.Scan(&o.ID, &o.CentreID, &o.CentreName, &o.DiscoverAPI, &o.MonthYear, &o.U2, &o.O2, &o.Total); err != nil {
			return nil, fmt.Errorf("scan occupancy: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertOccupancy(ctx context.Context, o core.Occupancy) (core.Occupancy, error) {
	if err := o.Validate(); err != nil {
		return core.Occupancy{}, err
	}
	c, err := r.GetCentre(ctx, o.CentreID)
	if err != nil {
		return core.Occupancy{}, err
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO occupancy (centre_id, month_year, u2, o2, total)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(centre_id, month_year) DO UPDATE SET
			u2 = excluded.u2,
			o2 = excluded.o2,
			total = excluded.total
		RETURNING id`, o.CentreID, o.MonthYear, o.U2, o.O2, o.Total).Scan(&o.ID)
	if err != nil {
		return core.Occupancy{}, fmt.Errorf("upsert occupancy %s for centre %d: %w", o.MonthYear, o.CentreID, err)
	}
	o.CentreName = c.Name
	o.DiscoverAPI = c.APIID
	return o, nil
}

const budgetColumns = `b.id, b.centre_id, c.name, b.category, b.year, COALESCE(b.xero_account_code, ''),
	b.monthly_budget, b.jan, b.feb, b.mar, b.apr, b.may, b.jun, b.jul, b.aug, b.sep, b.oct, b.nov, b.dec`

func (r *SQLiteRepository) ListBudgets(ctx context.Context, f store.BudgetFilter) ([]core.BudgetLine, error) {
	var (
		where []string
		args  []any
	)
	if f.CentreID != nil {
		where = append(where, "b.centre_id = ?")
		args = append(args, *f.CentreID)
	}
	if f.CentreName != "" {
		where = append(where, "c.name = ?")
		args = append(args, f.CentreName)
	}
	if f.Year != 0 {
		where = append(where, "b.year = ?")
		args = append(args, f.Year)
	}

	query := `SELECT ` + budgetColumns + ` FROM budgets b JOIN centres c ON c.id = b.centre_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.category, b.year, c.name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetLine
	for rows.Next() {
		var (
			b         core.BudgetLine
			category  string
			overrides [12]decimal.NullDecimal
		)
		dest := []any{&b.ID, &b.CentreID, &b.CentreName, &category, &b.Year, &b.AccountCode, &b.MonthlyBudget}
		for i := range overrides {
			dest = append(dest, &overrides[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Category = core.Category(category)
		for i, o := range overrides {
			if o.Valid {
				v := o.Decimal
				b.Overrides[i] = &v
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.BudgetLine) (core.BudgetLine, error) {
	if err := b.Validate(); err != nil {
		return core.BudgetLine{}, err
	}
	c, err := r.GetCentre(ctx, b.CentreID)
	if err != nil {
		return core.BudgetLine{}, err
	}

	args := []any{b.CentreID, nullString(strings.TrimSpace(b.AccountCode)), string(b.Category), b.Year, b.MonthlyBudget}
	for _, o := range b.Overrides {
		if o == nil {
			args = append(args, decimal.NullDecimal{})
		} else {
			args = append(args, decimal.NewNullDecimal(*o))
		}
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO budgets (centre_id, xero_account_code, category, year, monthly_budget,
			jan, feb, mar, apr, may, jun, jul, aug, sep, oct, nov, dec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(centre_id, category, year) DO UPDATE SET
			xero_account_code = excluded.xero_account_code,
			monthly_budget = excluded.monthly_budget,
			jan = excluded.jan, feb = excluded.feb, mar = excluded.mar,
			apr = excluded.apr, may = excluded.may, jun = excluded.jun,
			jul = excluded.jul, aug = excluded.aug, sep = excluded.sep,
			oct = excluded.oct, nov = excluded.nov, dec = excluded.dec
		RETURNING id`, args...).Scan(&b.ID)
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("upsert budget %s/%d for centre %d: %w", b.Category, b.Year, b.CentreID, err)
	}
	b.CentreName = c.Name
	return b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}
