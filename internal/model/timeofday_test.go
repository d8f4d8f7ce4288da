package model

import (
	"encoding/json"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "14:00", want: TimeOfDay{Hours: 14}},
		{in: "9:05", want: TimeOfDay{Hours: 9, Minutes: 5}},
		{in: "09:30:00", want: TimeOfDay{Hours: 9, Minutes: 30}},
		{in: "2:00 PM", want: TimeOfDay{Hours: 14}},
		{in: "12:15 am", want: TimeOfDay{Hours: 0, Minutes: 15}},
		{in: "24:00", wantErr: true},
		{in: "10:75", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "10:5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeOfDay(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTimeOfDay(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTimeOfDayUnmarshalShapesAgree(t *testing.T) {
	var fromString, fromObject, fromFormatted TimeOfDay
	if err := json.Unmarshal([]byte(`"14:00"`), &fromString); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"hours":14,"minutes":0,"formatted":"2:00 PM"}`), &fromObject); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"formatted":"2:00 PM"}`), &fromFormatted); err != nil {
		t.Fatalf("unmarshal formatted only: %v", err)
	}
	if fromString != fromObject || fromObject != fromFormatted {
		t.Errorf("shapes disagree: %+v %+v %+v", fromString, fromObject, fromFormatted)
	}
}

func TestTimeOfDayUnmarshalRejectsOutOfRange(t *testing.T) {
	var tod TimeOfDay
	if err := json.Unmarshal([]byte(`{"hours":25,"minutes":0}`), &tod); err == nil {
		t.Error("expected error for hours=25")
	}
	if err := json.Unmarshal([]byte(`{}`), &tod); err == nil {
		t.Error("expected error for empty object")
	}
}

func TestTimeOfDayMarshal(t *testing.T) {
	data, err := json.Marshal(TimeOfDay{Hours: 9, Minutes: 5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"hours":9,"minutes":5,"formatted":"9:05 AM"}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}
}

func TestTimeOfDayScanValue(t *testing.T) {
	tod := TimeOfDay{Hours: 17, Minutes: 45}
	v, err := tod.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != "17:45" {
		t.Errorf("value = %v, want %q", v, "17:45")
	}

	var scanned TimeOfDay
	if err := scanned.Scan([]byte("17:45")); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scanned != tod {
		t.Errorf("scanned = %+v, want %+v", scanned, tod)
	}
	if err := scanned.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}
