package security

import "testing"

func TestCheckQueryFlagsKnownSignatures(t *testing.T) {
	c := NewChecker(nil)

	flagged, _ := c.CheckQuery("1' OR '1'='1")
	if !flagged {
		t.Error("expected classic tautology injection to be flagged")
	}

	flagged, _ = c.CheckQuery("x; DROP TABLE users--")
	if !flagged {
		t.Error("expected stacked-query drop to be flagged")
	}
}

func TestCheckQueryLeavesOrdinaryValuesAlone(t *testing.T) {
	c := NewChecker(nil)

	flagged, _ := c.CheckQuery("u001")
	if flagged {
		t.Error("plain primary key literal must not be flagged")
	}
}

func TestCheckQueryDoesNotPanicWithNilLogger(t *testing.T) {
	c := NewChecker(nil)
	c.CheckQuery("benchmark(1000000,sha1('x'))")
}

func TestStatsTrackInspectedAndBlocked(t *testing.T) {
	c := NewChecker(nil)
	c.CheckQuery("safe-value")
	c.CheckQuery("' OR 1=1 --")

	stats := c.GetStats()
	if stats["inspected_count"].(int64) != 2 {
		t.Errorf("expected 2 inspected, got %v", stats["inspected_count"])
	}
	if stats["blocked_count"].(int64) != 1 {
		t.Errorf("expected 1 blocked, got %v", stats["blocked_count"])
	}
}
