package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"childcare/internal/amqp"
	"childcare/internal/core"
	"childcare/internal/log"
	"childcare/internal/scraper"
	"childcare/internal/services"
	sheetsmem "childcare/internal/sheets/memory"
	"childcare/internal/store/memory"
	"childcare/internal/xero"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: log.NewHandler(io.Discard, "text", slog.LevelInfo)})
}

func TestOverdueWorker_HandleOverdueInvoice(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	c, _ := s.EnsureCentre(ctx, core.Centre{Name: "Aroha", APIID: "aroha"})
	w := NewOverdueWorker(services.NewOverdueService(s), quietLogger())

	tests := []struct {
		name       string
		msg        *amqp.OverdueInvoiceMessage
		wantErr    bool
		wantReject bool
		wantStored string
	}{
		{"recorded", amqp.NewOverdueInvoiceMessage(c.ID, "Aroha", "aroha", "$1,250.00"), false, false, "1250.00"},
		{"bad amount", amqp.NewOverdueInvoiceMessage(c.ID, "Aroha", "aroha", "pending"), true, true, "1250.00"},
		{"unknown centre", amqp.NewOverdueInvoiceMessage(404, "Gone", "gone", "$5"), true, true, "1250.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.HandleOverdueInvoice(ctx, tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if amqp.IsRejected(err) != tt.wantReject {
				t.Errorf("rejected = %v, want %v", amqp.IsRejected(err), tt.wantReject)
			}
			got, _ := s.GetCentre(ctx, c.ID)
			if got.OverdueInvoiceAmount != tt.wantStored {
				t.Errorf("stored = %q, want %q", got.OverdueInvoiceAmount, tt.wantStored)
			}
		})
	}
}

func TestScheduler_Add(t *testing.T) {
	s := NewScheduler(quietLogger())
	noop := func(context.Context) error { return nil }

	if err := s.Add("daily", "0 6 * * *", noop); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add("manual", "", noop); err != nil {
		t.Fatalf("Add() unscheduled error = %v", err)
	}
	if err := s.Add("daily", "0 7 * * *", noop); err == nil {
		t.Error("expected error for duplicate job")
	}
	if err := s.Add("broken", "every tuesday", noop); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if n := s.Scheduled(); n != 1 {
		t.Errorf("Scheduled() = %d, want 1", n)
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(quietLogger())
	var runs atomic.Int32
	boom := errors.New("boom")
	_ = s.Add("count", "", func(context.Context) error { runs.Add(1); return nil })
	_ = s.Add("fail", "", func(context.Context) error { return boom })

	if err := s.RunNow(context.Background(), "count"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
	if err := s.RunNow(context.Background(), "fail"); !errors.Is(err, boom) {
		t.Errorf("RunNow() error = %v, want boom", err)
	}
	if err := s.RunNow(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(quietLogger())
	_ = s.Add("daily", "0 6 * * *", func(context.Context) error { return nil })
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	if err := s.ctx.Err(); err == nil {
		t.Error("job context not cancelled after Stop")
	}
}

type fakeSource map[string]string

func (f fakeSource) OverdueAmount(_ context.Context, apiID string) (string, error) {
	if a, ok := f[apiID]; ok {
		return a, nil
	}
	return "", scraper.ErrAmountNotFound
}

type recordingPublisher struct {
	msgs []*amqp.OverdueInvoiceMessage
}

func (p *recordingPublisher) PublishOverdueInvoice(_ context.Context, msg *amqp.OverdueInvoiceMessage) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestScrapeJob(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.EnsureCentre(ctx, core.Centre{Name: "Aroha", APIID: "aroha"})
	s.EnsureCentre(ctx, core.Centre{Name: "Kowhai"})

	pub := &recordingPublisher{}
	runner := scraper.NewRunner(fakeSource{"aroha": "$42.00"}, pub, quietLogger())

	if err := ScrapeJob(s, runner)(ctx); err != nil {
		t.Fatalf("ScrapeJob() error = %v", err)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Amount != "$42.00" {
		t.Fatalf("published = %+v", pub.msgs)
	}

	// The published message round-trips through the consumer.
	w := NewOverdueWorker(services.NewOverdueService(s), quietLogger())
	if err := w.HandleOverdueInvoice(ctx, pub.msgs[0]); err != nil {
		t.Fatalf("HandleOverdueInvoice() error = %v", err)
	}
	list, _ := services.NewOverdueService(s).List(ctx)
	if list[0].CentreName != "Aroha" || list[0].Amount != "42.00" {
		t.Errorf("overdue list = %+v", list)
	}
}

type staticTokens struct{}

func (staticTokens) AccessToken() (string, bool) { return "tok", true }
func (staticTokens) TenantID() (string, bool)    { return "tenant", true }

type staticFetcher struct{ year int }

func (f *staticFetcher) Fetch(_ context.Context, _, _ string, year int) (*xero.Documents, error) {
	f.year = year
	doc := []byte(`{"Reports":[{"Rows":[{"RowType":"Section","Rows":[
		{"RowType":"Row","Cells":[{"Value":"Food","Attributes":[{"Name":"AccountCode","Value":"200"}]},{"Value":"10"}]}]}]}]}`)
	return &xero.Documents{JanNov: doc, December: doc}, nil
}

func TestExportJob(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	c, _ := s.EnsureCentre(ctx, core.Centre{Name: "Aroha"})
	if _, err := s.UpsertBudget(ctx, core.BudgetLine{CentreID: c.ID, Category: core.CategoryFoodCosts, Year: 2025, AccountCode: "200"}); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}

	fetcher := &staticFetcher{}
	actuals := services.NewActualsService(staticTokens{}, fetcher, s, s, 2025)
	exporter := sheetsmem.New()

	if err := ExportJob(services.NewExportService(actuals, exporter), actuals, quietLogger())(ctx); err != nil {
		t.Fatalf("ExportJob() error = %v", err)
	}
	if fetcher.year != 2025 {
		t.Errorf("fetched year = %d, want 2025", fetcher.year)
	}
	if rows := exporter.Rows(2025); len(rows) != 1 {
		t.Errorf("exported rows = %d, want 1", len(rows))
	}

	err := ExportJob(services.NewExportService(actuals, nil), actuals, nil)(ctx)
	if !errors.Is(err, services.ErrExportNotConfigured) || !strings.Contains(err.Error(), "2025") {
		t.Errorf("unconfigured export error = %v", err)
	}
}
