package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"fre", "fr"},
		{"ger", "de"},
		{"chi", "zh"},
		{"dut", "nl"},
		{"english", "en"},
		{"GERMAN", "de"},
		{"en-US", "en"},
		{"pt_BR", "pt"},
		{"xy", "xy"},
		{"xyz", ""},
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO2(tt.input); got != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "eng"},
		{"fr", "fra"},
		{"fre", "fra"},
		{"zh-Hant", "zho"},
		{"xyz", "xyz"},
		{"xy", "und"},
		{"", "und"},
	}
	for _, tt := range tests {
		if got := ToISO3(tt.input); got != tt.expected {
			t.Errorf("ToISO3(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"jpn", "Japanese"},
		{"en-GB", "English"},
		{"swedish", "Swedish"},
		{"tlh", "TLH"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{"eng", " EN ", "", "japanese", "tlh", "ja"})
	want := []string{"en", "ja", "tlh"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NormalizeList = %v, want %v", got, want)
		}
	}
	if NormalizeList(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestTrackSelector(t *testing.T) {
	tests := []struct {
		input    []string
		expected string
	}{
		{[]string{"english"}, "en,eng"},
		{[]string{"fr", "jpn"}, "fr,fra,fre,ja,jpn"},
		{[]string{"tlh", "en"}, "tlh,en,eng"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := TrackSelector(tt.input); got != tt.expected {
			t.Errorf("TrackSelector(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
