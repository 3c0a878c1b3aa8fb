package filters

import (
	"reflect"
	"testing"
)

func TestDateToEpochMillis(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		isDate   bool
	}{
		{
			name:     "valid calendar date",
			input:    "2023-01-01",
			expected: 1672531200000,
			isDate:   true,
		},
		{
			name:     "unix epoch",
			input:    "1970-01-01",
			expected: 0,
			isDate:   true,
		},
		{
			name:   "date with time component is not a calendar date",
			input:  "2023-01-01T10:00:00",
			isDate: false,
		},
		{
			name:   "arbitrary string",
			input:  "john@example.com",
			isDate: false,
		},
		{
			name:   "numeric string",
			input:  "1672531200000",
			isDate: false,
		},
		{
			name:   "non-padded date",
			input:  "2023-1-1",
			isDate: false,
		},
		{
			name:   "empty string",
			input:  "",
			isDate: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			millis, ok := dateToEpochMillis(tt.input)
			if ok != tt.isDate {
				t.Fatalf("dateToEpochMillis(%q) ok = %v, want %v", tt.input, ok, tt.isDate)
			}
			if ok && millis != tt.expected {
				t.Errorf("dateToEpochMillis(%q) = %d, want %d", tt.input, millis, tt.expected)
			}
		})
	}
}

func TestNormalize_RewritesDates(t *testing.T) {
	groups := Groups{
		{Filters: []Filter{
			{"propertyName": "createdate", "operator": "GTE", "value": "2023-01-01"},
			{"propertyName": "email", "operator": "EQ", "value": "john@example.com"},
		}},
	}

	result := Normalize(groups)

	if got := result[0].Filters[0]["value"]; got != int64(1672531200000) {
		t.Errorf("date value = %v (%T), want 1672531200000 (int64)", got, got)
	}
	if got := result[0].Filters[1]["value"]; got != "john@example.com" {
		t.Errorf("non-date value = %v, want unchanged string", got)
	}
}

func TestNormalize_LeavesNonDatesUntouched(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"integer", int64(42)},
		{"float from json decoding", float64(1672531200000)},
		{"boolean", true},
		{"non-date string", "GTE"},
		{"nil value", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := Groups{{Filters: []Filter{{"value": tt.value}}}}
			result := Normalize(groups)

			if got := result[0].Filters[0]["value"]; !reflect.DeepEqual(got, tt.value) {
				t.Errorf("value = %v, want %v unchanged", got, tt.value)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	groups := Groups{
		{Filters: []Filter{
			{"propertyName": "createdate", "operator": "BETWEEN", "value": "2023-01-01", "highValue": "2023-06-30"},
			{"propertyName": "lifecyclestage", "operator": "IN", "values": []any{"lead", "2023-03-15"}},
		}},
	}

	once := Normalize(groups)
	twice := Normalize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize is not idempotent:\nonce:  %#v\ntwice: %#v", once, twice)
	}
}

func TestNormalize_NestedValues(t *testing.T) {
	groups := Groups{
		{Filters: []Filter{
			{
				"propertyName": "closedate",
				"operator":     "IN",
				"values":       []any{"2023-01-01", "not-a-date", []any{"2024-02-29"}},
				"extra":        map[string]any{"since": "2023-01-01"},
			},
		}},
	}

	result := Normalize(groups)
	filter := result[0].Filters[0]

	values := filter["values"].([]any)
	if values[0] != int64(1672531200000) {
		t.Errorf("values[0] = %v, want epoch millis", values[0])
	}
	if values[1] != "not-a-date" {
		t.Errorf("values[1] = %v, want unchanged", values[1])
	}
	nested := values[2].([]any)
	if nested[0] != int64(1709164800000) {
		t.Errorf("nested date = %v, want epoch millis for 2024-02-29", nested[0])
	}
	extra := filter["extra"].(map[string]any)
	if extra["since"] != int64(1672531200000) {
		t.Errorf("nested map date = %v, want epoch millis", extra["since"])
	}
}

func TestNormalize_SameDateSameMillisAcrossNesting(t *testing.T) {
	groups := Groups{
		{Filters: []Filter{
			{"value": "2023-05-15"},
			{"values": []any{"2023-05-15"}},
			{"deep": map[string]any{"inner": []any{map[string]any{"v": "2023-05-15"}}}},
		}},
	}

	result := Normalize(groups)

	top := result[0].Filters[0]["value"].(int64)
	list := result[0].Filters[1]["values"].([]any)[0].(int64)
	deep := result[0].Filters[2]["deep"].(map[string]any)["inner"].([]any)[0].(map[string]any)["v"].(int64)

	if top != list || list != deep {
		t.Errorf("Same calendar date mapped to different values: %d, %d, %d", top, list, deep)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	groups := Groups{
		{Filters: []Filter{
			{"propertyName": "createdate", "operator": "GTE", "value": "2023-01-01"},
		}},
	}

	_ = Normalize(groups)

	if got := groups[0].Filters[0]["value"]; got != "2023-01-01" {
		t.Errorf("input mutated: value = %v, want original string", got)
	}
}

func TestNormalize_Nil(t *testing.T) {
	if result := Normalize(nil); result != nil {
		t.Errorf("Normalize(nil) = %v, want nil", result)
	}
}
