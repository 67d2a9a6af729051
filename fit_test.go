package ridestats

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/tormoder/fit"
)

type fitSample struct {
	offset  time.Duration
	power   uint16
	hr      uint8
	cadence uint8
	speed   float64 // m/s, negative for none
}

func buildTestFIT(t *testing.T, samples []fitSample) []byte {
	t.Helper()

	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	if err != nil {
		t.Fatalf("new fit file: %v", err)
	}
	activity, err := file.Activity()
	if err != nil {
		t.Fatalf("activity accessor: %v", err)
	}

	start := time.Date(2026, 4, 12, 8, 0, 0, 0, time.UTC)
	event := fit.NewEventMsg()
	event.Timestamp = start
	event.Event = fit.EventTimer
	event.EventType = fit.EventTypeStart
	activity.Events = append(activity.Events, event)

	for _, smp := range samples {
		record := fit.NewRecordMsg()
		record.Timestamp = start.Add(smp.offset)
		record.Power = smp.power
		record.HeartRate = smp.hr
		record.Cadence = smp.cadence
		if smp.speed >= 0 {
			record.Speed = uint16(math.Round(smp.speed * 1000))
			record.EnhancedSpeed = uint32(math.Round(smp.speed * 1000))
			record.Distance = uint32(smp.offset.Seconds() * smp.speed * 100)
		}
		activity.Records = append(activity.Records, record)
	}

	var buf bytes.Buffer
	if err := fit.Encode(&buf, file, binary.LittleEndian); err != nil {
		t.Fatalf("encode fit: %v", err)
	}
	return buf.Bytes()
}

func TestReadFIT(t *testing.T) {
	data := buildTestFIT(t, []fitSample{
		{offset: 2 * time.Second, power: 230, hr: 141, cadence: 92, speed: 8},
		{offset: 0, power: 210, hr: 0xFF, cadence: 90, speed: 8},
		{offset: time.Second, power: 0xFFFF, hr: 140, cadence: 91, speed: 0.5},
	})

	s, err := ReadFIT(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFIT() error: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if s.HasColumn(FieldMoving) {
		t.Fatalf("FIT streams carry no moving column")
	}

	// Records come back in timestamp order.
	wantTime := []float64{0, 1, 2}
	for i, want := range wantTime {
		if got, ok := s.Column(FieldTime).At(i); !ok || got != want {
			t.Fatalf("time[%d] = %v, want %v", i, got, want)
		}
	}
	if v, _ := s.Column(FieldPower).At(0); v != 210 {
		t.Fatalf("power[0] = %v, want 210", v)
	}
	if _, ok := s.Column(FieldPower).At(1); ok {
		t.Fatalf("invalid power sentinel should be missing")
	}
	if _, ok := s.Column(FieldHR).At(0); ok {
		t.Fatalf("invalid heart rate sentinel should be missing")
	}
	if v, _ := s.Column(FieldVelocity).At(2); math.Abs(v-8) > 1e-9 {
		t.Fatalf("speed[2] = %v, want 8", v)
	}

	mask := ClassifyMovement(s)
	if !mask[0] || mask[1] || !mask[2] {
		t.Fatalf("mask = %v", mask)
	}
}

func TestAnalyzeBytesFIT(t *testing.T) {
	samples := make([]fitSample, 0, 60)
	for i := 0; i < 60; i++ {
		samples = append(samples, fitSample{offset: time.Duration(i) * time.Second, power: 250, hr: 150, cadence: 88, speed: 9})
	}

	a, err := AnalyzeBytes("ride.fit", buildTestFIT(t, samples), 250)
	if err != nil {
		t.Fatalf("AnalyzeBytes() error: %v", err)
	}
	if a.Summary.NormalizedPowerW == nil || *a.Summary.NormalizedPowerW != 250 {
		t.Fatalf("NP = %v, want 250", a.Summary.NormalizedPowerW)
	}
	if *a.Summary.IntensityFactor != 1 {
		t.Fatalf("IF = %v, want 1", *a.Summary.IntensityFactor)
	}
	if a.Summary.MovingTime != 60*time.Second || a.Summary.Duration != 59*time.Second {
		t.Fatalf("moving %v duration %v", a.Summary.MovingTime, a.Summary.Duration)
	}
}

func TestReadFITRejectsGarbage(t *testing.T) {
	if _, err := ReadFIT(bytes.NewReader([]byte("not a fit file at all"))); err == nil {
		t.Fatalf("expected decode error")
	}
}
