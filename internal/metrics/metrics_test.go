package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorsRegistered(t *testing.T) {
	FactRows.WithLabelValues("fact_orders").Set(3)
	EventsIngested.WithLabelValues("live").Add(2)

	families, err := Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		switch f.GetName() {
		case "commercepulse_events_ingested_total":
			found = true
		case "commercepulse_fact_rows":
			if got := f.GetMetric()[0].GetGauge().GetValue(); got != 3 {
				t.Errorf("fact rows = %v, want 3", got)
			}
		}
	}
	if !found {
		t.Error("ingested counter not registered")
	}
}

func TestPush_Disabled(t *testing.T) {
	if err := Push(context.Background(), "", "job", ""); err != nil {
		t.Errorf("Push() with empty url error = %v", err)
	}
}

func TestPush(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Push(context.Background(), srv.URL, "commercepulse", "run-1"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if !strings.Contains(gotPath, "/job/commercepulse") || !strings.Contains(gotPath, "/instance/run-1") {
		t.Errorf("push path = %q", gotPath)
	}
}
