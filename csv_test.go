package ridestats

import (
	"errors"
	"strings"
	"testing"
)

func TestReadCSVAliasesAndMissingCells(t *testing.T) {
	input := "\ufeffElapsed_S, Power_W ,HR_BPM,speed_mps,Moving,altitude\n" +
		"0,150,,4.2,TRUE,12\n" +
		"1,NaN,140,4.4,no,13\n" +
		"2,,141,,1,14\n"

	s, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	for _, f := range []Field{FieldTime, FieldPower, FieldHR, FieldVelocity, FieldMoving} {
		if !s.HasColumn(f) {
			t.Fatalf("expected column %s", f)
		}
	}
	if s.HasColumn(FieldCadence) || s.HasColumn(FieldDistance) {
		t.Fatalf("unexpected columns")
	}

	if got := s.Aggregate(FieldPower, AggCount); got == nil || *got != 1 {
		t.Fatalf("power count = %v, want 1", got)
	}
	if _, ok := s.Column(FieldHR).At(0); ok {
		t.Fatalf("empty HR cell should be missing")
	}
	mask := ClassifyMovement(s)
	if !mask[0] || mask[1] || !mask[2] {
		t.Fatalf("moving mask = %v", mask)
	}
}

func TestReadCSVFirstAliasWins(t *testing.T) {
	s, err := ReadCSV(strings.NewReader("time,watts,power\n0,100,999\n"))
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if v, _ := s.Column(FieldPower).At(0); v != 100 {
		t.Fatalf("power = %v, want the first matching column", v)
	}
}

func TestReadCSVRejectsBadCells(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		column string
	}{
		{"text in power", "time,watts\n0,100\n1,fast\n", "watts"},
		{"bad boolean", "time,moving\n0,maybe\n", "moving"},
		{"infinity", "time,heartrate\n0,+Inf\n", "heartrate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			var ce *cellError
			if !errors.As(err, &ce) {
				t.Fatalf("expected cell error, got %v", err)
			}
			if ce.Column != tt.column {
				t.Fatalf("column = %q, want %q", ce.Column, tt.column)
			}
		})
	}
}

func TestReadCSVReportsRowNumber(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("time,watts\n0,100\n1,110\n2,x\n"))
	var ce *cellError
	if !errors.As(err, &ce) || ce.Row != 4 {
		t.Fatalf("expected error on line 4, got %v", err)
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyStream) {
		t.Fatalf("expected ErrEmptyStream, got %v", err)
	}

	s, err := ReadCSV(strings.NewReader("time,watts\n"))
	if err != nil {
		t.Fatalf("header-only ReadCSV() error: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
}
