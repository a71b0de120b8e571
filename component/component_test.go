package component

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/prefkit/logger"
)

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	order    *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.order != nil {
		*m.order = append(*m.order, "start:"+m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.order != nil {
		*m.order = append(*m.order, "stop:"+m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health { return m.health }

func init() { logger.SetGlobalLogger(logger.NewNop()) }

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&mockComponent{name: "watcher"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "watcher"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if r.Get("watcher") == nil || r.Get("missing") != nil {
		t.Error("unexpected Get result")
	}
}

func TestStartStopOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	for _, name := range []string{"workspace", "watcher", "registry"} {
		_ = r.Register(&mockComponent{name: name, order: &order})
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	want := "start:workspace,start:watcher,start:registry,stop:registry,stop:watcher,stop:workspace"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestStartAllRollsBack(t *testing.T) {
	r := NewRegistry()
	var order []string
	_ = r.Register(&mockComponent{name: "workspace", order: &order})
	_ = r.Register(&mockComponent{name: "registry", order: &order, startErr: fmt.Errorf("no roots")})
	_ = r.Register(&mockComponent{name: "server", order: &order})

	err := r.StartAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "registry") {
		t.Fatalf("expected start error naming registry, got %v", err)
	}
	want := "start:workspace,start:registry,stop:workspace"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
	order = nil
	if err := r.StopAll(context.Background()); err != nil || len(order) != 0 {
		t.Errorf("nothing should be left to stop: %v %v", err, order)
	}
}

func TestStopAllCollectsErrors(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "a", stopErr: fmt.Errorf("a failed")})
	_ = r.Register(&mockComponent{name: "b", stopErr: fmt.Errorf("b failed")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "a failed") || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("expected both stop errors, got %v", err)
	}
}

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		statuses []HealthStatus
		want     HealthStatus
	}{
		{"all healthy", []HealthStatus{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"degraded", []HealthStatus{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []HealthStatus{StatusUnhealthy, StatusDegraded}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for i, s := range tt.statuses {
				name := fmt.Sprintf("c%d", i)
				_ = r.Register(&mockComponent{name: name, health: Health{Name: name, Status: s}})
			}
			report := r.Report(context.Background(), "v1")
			if report.Status != tt.want || len(report.Components) != len(tt.statuses) || report.Version != "v1" {
				t.Errorf("unexpected report %+v", report)
			}
		})
	}
}
