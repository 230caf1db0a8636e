package colour

import (
	"encoding/json"
	"image/color"
	"strings"
	"testing"
)

func TestToRGB(t *testing.T) {
	tests := []struct {
		name  string
		color color.Color
		want  RGB
	}{
		{
			name:  "red",
			color: color.RGBA{R: 255, G: 0, B: 0, A: 255},
			want:  RGB{R: 255, G: 0, B: 0},
		},
		{
			name:  "white",
			color: color.RGBA{R: 255, G: 255, B: 255, A: 255},
			want:  RGB{R: 255, G: 255, B: 255},
		},
		{
			name:  "black",
			color: color.RGBA{R: 0, G: 0, B: 0, A: 255},
			want:  RGB{R: 0, G: 0, B: 0},
		},
		{
			name:  "grey",
			color: color.Gray{Y: 128},
			want:  RGB{R: 128, G: 128, B: 128},
		},
		{
			name:  "non-premultiplied",
			color: color.NRGBA{R: 200, G: 100, B: 50, A: 255},
			want:  RGB{R: 200, G: 100, B: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToRGB(tt.color)
			if got != tt.want {
				t.Errorf("ToRGB() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRGBHex(t *testing.T) {
	tests := []struct {
		name string
		rgb  RGB
		want string
	}{
		{name: "red", rgb: RGB{R: 255}, want: "#ff0000"},
		{name: "mixed", rgb: RGB{R: 26, G: 43, B: 60}, want: "#1a2b3c"},
		{name: "black", rgb: RGB{}, want: "#000000"},
		{name: "lowercase", rgb: RGB{R: 171, G: 205, B: 239}, want: "#abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rgb.Hex(); got != tt.want {
				t.Errorf("Hex() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRGBString(t *testing.T) {
	if got := (RGB{R: 1, G: 2, B: 3}).String(); got != "rgb(1, 2, 3)" {
		t.Errorf("String() = %s, want rgb(1, 2, 3)", got)
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{in: "#ffffff", want: RGB{R: 255, G: 255, B: 255}},
		{in: "1A2B3C", want: RGB{R: 26, G: 43, B: 60}},
		{in: "#fff", want: RGB{R: 255, G: 255, B: 255}},
		{in: " #000000 ", want: RGB{}},
		{in: "#AbC", want: RGB{R: 170, G: 187, B: 204}},
		{in: "#808080", want: RGB{R: 128, G: 128, B: 128}},
		{in: "#ff", wantErr: true},
		{in: "#ffffffff", wantErr: true},
		{in: "#ff ff f", wantErr: true},
		{in: "##ffffff", wantErr: true},
		{in: "#gggggg", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseHex(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRecordsToJSON(t *testing.T) {
	records := []ColorRecord{
		{Hex: "#ff0000", RGB: RGB{R: 255}, Count: 75, Percent: 75},
		{Hex: "#0000ff", RGB: RGB{B: 255}, Count: 25, Percent: 25},
	}

	data, err := RecordsToJSON(records)
	if err != nil {
		t.Fatalf("RecordsToJSON() error = %v", err)
	}

	var decoded PaletteJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
	if decoded.Count != 2 {
		t.Errorf("count = %d, want 2", decoded.Count)
	}
	if decoded.Colors[1].RGB.B != 255 || decoded.Colors[1].Hex != "#0000ff" {
		t.Errorf("colors[1] = %+v", decoded.Colors[1])
	}
	if !strings.Contains(string(data), `"percent": 75`) {
		t.Errorf("expected percent field in %s", data)
	}
}

func TestRecordsToJSONEmpty(t *testing.T) {
	data, err := RecordsToJSON(nil)
	if err != nil {
		t.Fatalf("RecordsToJSON() error = %v", err)
	}
	if !strings.Contains(string(data), `"colors": []`) {
		t.Errorf("expected empty colors array, got %s", data)
	}
}

func TestColourPreview(t *testing.T) {
	got := ColourPreview(RGB{R: 1, G: 2, B: 3}, 4)
	if !strings.HasPrefix(got, "\033[48;2;1;2;3m") || !strings.HasSuffix(got, "    \033[0m") {
		t.Errorf("ColourPreview() = %q", got)
	}

	withText := ColourPreviewWithText(RGB{R: 255, G: 255, B: 255}, "ab", 6)
	if !strings.Contains(withText, "\033[38;2;0;0;0m  ab  ") {
		t.Errorf("expected dark centred text on white, got %q", withText)
	}
}
