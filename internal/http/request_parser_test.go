package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wellnesslog/internal/core"
)

func TestRequestBodyParserRawFields(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        core.RawFields
	}{
		{
			name:        "form data",
			contentType: "application/x-www-form-urlencoded",
			body:        url.Values{"mood": {"calm"}, "triggers": {"rain", "work"}, "date": {" 2025-03-10 "}}.Encode(),
			want:        core.RawFields{"mood": {"calm"}, "triggers": {"rain", "work"}, "date": {"2025-03-10"}},
		},
		{
			name:        "JSON numbers and arrays",
			contentType: "application/json",
			body:        `{"sleepHours": 7.5, "rating": 8, "triggers": ["exam", 3, null], "note": null}`,
			want:        core.RawFields{"sleepHours": {"7.5"}, "rating": {"8"}, "triggers": {"exam", "3"}},
		},
		{
			name:        "JSON object sniffed without content type",
			contentType: "",
			body:        `{"condition": "dry"}`,
			want:        core.RawFields{"condition": {"dry"}},
		},
		{
			name:        "control characters stripped",
			contentType: "application/x-www-form-urlencoded",
			body:        "mood=ha%00ppy",
			want:        core.RawFields{"mood": {"happy"}},
		},
		{
			name:        "empty body",
			contentType: "application/x-www-form-urlencoded",
			body:        "",
			want:        core.RawFields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/entries/mood", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, p.RawFields()); diff != "" {
				t.Errorf("RawFields() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequestBodyParserRejectsBadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating": `))
	req.Header.Set("Content-Type", "application/json")
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Fatal("expected decode error")
	}
	// Parse is memoised.
	if err := p.Parse(); err == nil {
		t.Fatal("second Parse should return the same error")
	}
}

func TestRequestBodyParserTooLarge(t *testing.T) {
	body := "note=" + strings.Repeat("a", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("Parse() error = %v, want errBodyTooLarge", err)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	body := `{"focus": [{"date": "2025-03-10", "sleepHours": 8, "screenHours": 2, "exerciseMinutes": 30, "rating": 9}], "skin": [], "mood": []}`
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(body))
	snap, err := decodeSnapshot(req)
	if err != nil {
		t.Fatalf("decodeSnapshot() error = %v", err)
	}
	want := []core.FocusEntry{{Date: "2025-03-10", SleepHours: 8, ScreenHours: 2, ExerciseMinutes: 30, Rating: 9}}
	if diff := cmp.Diff(want, snap.Focus); diff != "" {
		t.Errorf("focus (-want +got):\n%s", diff)
	}
}
