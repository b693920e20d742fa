package recipe

import (
	"encoding/json"
	"testing"
)

func TestServingsField(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{``, 2},
		{`null`, 2},
		{`4`, 4},
		{`0`, 1},
		{`-3`, 1},
		{`40`, 12},
		{`2.9`, 2},
		{`"5"`, 5},
		{`" 6 "`, 6},
		{`""`, 1},
		{`"muitas"`, 2},
		{`true`, 1},
		{`[3]`, 2},
		{`{"n":3}`, 2},
	}
	for _, tt := range tests {
		if got := servingsField(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("servingsField(%s) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestTextField(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{``, ""},
		{`null`, ""},
		{`"ovo, arroz"`, "ovo, arroz"},
		{`123`, "123"},
		{`0`, ""},
		{`false`, ""},
		{`true`, "true"},
		{`["ovo","arroz"]`, "ovo,arroz"},
		{`{"a":1}`, ""},
	}
	for _, tt := range tests {
		if got := textField(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("textField(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{``, false},
		{`null`, false},
		{`false`, false},
		{`true`, true},
		{`0`, false},
		{`1`, true},
		{`""`, false},
		{`"false"`, true},
		{`{}`, true},
	}
	for _, tt := range tests {
		if got := truthy(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("truthy(%s) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestToServiceRequest(t *testing.T) {
	var body GenerateRequest
	raw := `{"ingredients":"  ovo, arroz  ","servings":3,"restrictions":" vegano ","cuisine":"churrasco","equipment":"Air Fryer","allowExtras":true}`
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	req := body.toServiceRequest("req-1")
	if req.Ingredients != "ovo, arroz" || req.Restrictions != "vegano" || req.Cuisine != "churrasco" {
		t.Errorf("text fields not trimmed: %+v", req)
	}
	if req.Equipment != "Air Fryer" || req.Servings != 3 || !req.AllowExtras || req.RequestID != "req-1" {
		t.Errorf("req = %+v", req)
	}
}
