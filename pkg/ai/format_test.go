package ai

import "testing"

type formatTestOut struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func TestUnmarshalFlexible_StandardJSON(t *testing.T) {
	var out formatTestOut
	err := UnmarshalFlexible(`{"subject": "Q1 update", "body": "Revenue grew."}`, &out)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if out.Subject != "Q1 update" {
		t.Fatalf("unexpected subject: %q", out.Subject)
	}
}

func TestUnmarshalFlexible_DoubleEncoded(t *testing.T) {
	var out formatTestOut
	err := UnmarshalFlexible(`"{\"subject\": \"Q1\", \"body\": \"b\"}"`, &out)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if out.Subject != "Q1" {
		t.Fatalf("unexpected subject: %q", out.Subject)
	}
}

func TestUnmarshalFlexible_Malformed(t *testing.T) {
	var out formatTestOut
	err := UnmarshalFlexible(`{subject: "Q1", body: "b",}`, &out)
	if err != nil {
		t.Fatalf("expected repaired parse, got %v", err)
	}
	if out.Subject != "Q1" {
		t.Fatalf("unexpected subject: %q", out.Subject)
	}
}
