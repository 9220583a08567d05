package db

import (
	"strings"
	"testing"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	if migrations[0].Version != "001" {
		t.Errorf("first migration version = %q, want 001", migrations[0].Version)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Errorf("migrations not sorted: %s before %s", migrations[i-1].Version, migrations[i].Version)
		}
	}

	for _, table := range []string{"analyses", "comparisons", "multi_comparison_videos", "subscriptions", "anonymous_usage", "user_daily_usage"} {
		if !strings.Contains(migrations[0].SQL, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("initial migration missing table %s", table)
		}
	}

	last := migrations[len(migrations)-1]
	if last.Version != "002" || !strings.Contains(last.SQL, "CREATE TABLE IF NOT EXISTS usage_events") {
		t.Errorf("latest migration = %s, want 002 creating usage_events", last.Name)
	}
}
