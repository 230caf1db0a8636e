package cli

import (
	"strings"
	"testing"
)

func TestTableAddRow(t *testing.T) {
	table := NewTable([]string{"Name", "Age"})

	table.AddRow([]string{"Alice", "30"})
	table.AddRow([]string{"Bob"})
	table.AddRow([]string{"Charlie", "25", "Extra"})

	if len(table.rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(table.rows))
	}
	if len(table.rows[1]) != 2 || table.rows[1][1] != "" {
		t.Errorf("Expected short row padded to 2 columns, got %q", table.rows[1])
	}
	if len(table.rows[2]) != 2 {
		t.Errorf("Expected long row truncated to 2 columns, got %q", table.rows[2])
	}
}

func TestTableRender(t *testing.T) {
	table := NewTable([]string{"Name", "Count"})
	table.SetAlignRight(1)
	table.AddRow([]string{"Alice", "7"})
	table.AddRow([]string{"Bob", "1234"})

	want := "" +
		"Name   Count\n" +
		"-----  -----\n" +
		"Alice      7\n" +
		"Bob     1234\n"

	if got := table.Render(); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestTableRenderEmpty(t *testing.T) {
	if got := NewTable(nil).Render(); got != "" {
		t.Errorf("Expected empty string for table without headers, got %q", got)
	}

	output := NewTable([]string{"Column1", "Column2"}).Render()
	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and separator only, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "-------") {
		t.Errorf("Expected separator line, got %q", lines[1])
	}
}

func TestTableIgnoresANSIWidth(t *testing.T) {
	swatch := "\033[48;2;255;0;0m    \033[0m"

	table := NewTable([]string{"C", "HEX"})
	table.AddRow([]string{swatch, "#ff0000"})
	lines := strings.Split(table.Render(), "\n")

	// The swatch is four columns wide, so HEX starts at column 6.
	if !strings.HasPrefix(lines[0], "C     HEX") {
		t.Errorf("header = %q, want column sized to visible swatch width", lines[0])
	}
	if !strings.HasSuffix(lines[2], "\033[0m  #ff0000") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestVisibleWidth(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"abc", 3},
		{"→ →", 3},
		{"\033[48;2;1;2;3m  \033[0m", 2},
		{"\033[38;2;0;0;0mab\033[0m", 2},
	}

	for _, tt := range tests {
		if got := visibleWidth(tt.input); got != tt.want {
			t.Errorf("visibleWidth(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestPadding(t *testing.T) {
	tests := []struct {
		input     string
		width     int
		wantRight string
		wantLeft  string
	}{
		{"test", 6, "test  ", "  test"},
		{"hello", 5, "hello", "hello"},
		{"world", 3, "world", "world"},
		{"", 2, "  ", "  "},
	}

	for _, tt := range tests {
		if got := padRight(tt.input, tt.width); got != tt.wantRight {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.wantRight)
		}
		if got := padLeft(tt.input, tt.width); got != tt.wantLeft {
			t.Errorf("padLeft(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.wantLeft)
		}
	}
}
