package scheduler

import (
	"errors"
	"testing"

	"github.com/codr1/courtledger/internal/split"
	"github.com/codr1/courtledger/internal/testutil"
)

func TestAddJobValidation(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })

	tests := []struct {
		name     string
		jobName  string
		cronExpr string
		wantErr  error
	}{
		{name: "missing name", cronExpr: "* * * * *", wantErr: ErrEmptyJobName},
		{name: "missing cron", jobName: "sweep", wantErr: ErrEmptyCronExpr},
		{name: "valid", jobName: "sweep", cronExpr: "*/5 * * * *"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddJob(tc.jobName, tc.cronExpr, func() {})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	if _, err := svc.AddJob("bad", "every now and then", func() {}); err == nil {
		t.Fatalf("expected invalid cron expression to fail")
	}
}

func TestNilServiceIsNotInitialized(t *testing.T) {
	var svc *Service
	if _, err := svc.AddJob("sweep", "* * * * *", func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
	if err := svc.Stop(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Stop err = %v, want ErrNotInitialized", err)
	}
}

func TestRegisterSplitExpiryJob(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })

	if err := svc.RegisterSplitExpiryJob(nil, "*/5 * * * *"); err == nil {
		t.Fatalf("expected nil orchestrator to fail")
	}
	orchestrator, err := split.NewOrchestrator(testutil.NewTestDB(t), nil, nil, nil, split.Options{})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	if err := svc.RegisterSplitExpiryJob(orchestrator, "*/5 * * * *"); err != nil {
		t.Fatalf("RegisterSplitExpiryJob: %v", err)
	}
}
