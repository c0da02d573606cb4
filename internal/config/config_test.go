package config

import (
	"testing"
	"time"
)

func TestSplitCSV(t *testing.T) {
	got := splitCSV("kafka-1:9092, kafka-2:9092 ,,")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Errorf("splitCSV = %v", got)
	}
}

func TestGetDuration(t *testing.T) {
	t.Setenv("TEST_EXPIRY", "30m")
	if d := getDuration("TEST_EXPIRY", time.Hour); d != 30*time.Minute {
		t.Errorf("duration = %s, want 30m", d)
	}

	t.Setenv("TEST_EXPIRY", "12")
	if d := getDuration("TEST_EXPIRY", time.Hour); d != 12*time.Hour {
		t.Errorf("bare integer = %s, want 12h", d)
	}

	t.Setenv("TEST_EXPIRY", "nonsense")
	if d := getDuration("TEST_EXPIRY", time.Hour); d != time.Hour {
		t.Errorf("fallback = %s, want 1h", d)
	}
}
