package convo

import "testing"

func TestConversationOrder(t *testing.T) {
	c := New("CA1", "biz-1", 0)
	c.AddCaller("hello")
	c.AddAssistant("hi, how can I help?", "greeting")
	c.AddCaller("what are your hours?")

	turns := c.Snapshot()
	if len(turns) != 3 {
		t.Fatalf("len = %d, want 3", len(turns))
	}
	if turns[0].Role != "caller" || turns[1].Role != "assistant" {
		t.Fatalf("roles out of order: %v %v", turns[0].Role, turns[1].Role)
	}
	if turns[2].Text != "what are your hours?" {
		t.Fatalf("last turn = %q", turns[2].Text)
	}
	if turns[1].Label != "greeting" || turns[0].Label != "" {
		t.Fatalf("labels = %q/%q", turns[0].Label, turns[1].Label)
	}
}

func TestConversationContext(t *testing.T) {
	c := New("CA1", "biz-1", 0)
	if len(c.Context()) != 0 {
		t.Fatal("fresh conversation has context")
	}
	c.SetContext("lastIntent", "hours")
	c.SetContext("lastIntent", "location")

	got := c.Context()
	if got["lastIntent"] != "location" {
		t.Fatalf("context = %v", got)
	}
	got["lastIntent"] = "mutated"
	if c.Context()["lastIntent"] != "location" {
		t.Fatal("Context aliases internal storage")
	}
}

func TestConversationBound(t *testing.T) {
	c := New("CA1", "biz-1", 4)
	for i := 0; i < 5; i++ {
		c.AddCaller("q")
		c.AddAssistant("a", "")
	}
	turns := c.Snapshot()
	if len(turns) != 4 {
		t.Fatalf("len = %d, want 4", len(turns))
	}
	if turns[0].Role != "caller" {
		t.Fatalf("trimmed history opens on %q, want caller", turns[0].Role)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	c := New("CA1", "biz-1", 0)
	c.AddCaller("hello")
	snap := c.Snapshot()
	snap[0].Text = "mutated"
	if c.Snapshot()[0].Text != "hello" {
		t.Fatal("snapshot aliases internal storage")
	}
}
