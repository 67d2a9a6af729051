//go:build !js

package pipeline

import (
	"math"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type derivedParquetRow struct {
	ElapsedS      float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	DistanceM     float64 `parquet:"name=distance_m, type=DOUBLE"`
	PowerW        float64 `parquet:"name=power_w, type=DOUBLE"`
	CadenceRPM    float64 `parquet:"name=cadence_rpm, type=DOUBLE"`
	HRBPM         float64 `parquet:"name=hr_bpm, type=DOUBLE"`
	SpeedMPS      float64 `parquet:"name=speed_mps, type=DOUBLE"`
	Moving        bool    `parquet:"name=moving, type=BOOLEAN"`
	RollingPowerW float64 `parquet:"name=rolling_power_30s_w, type=DOUBLE"`
}

func marshalDerivedParquet(samples []DerivedSample) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(derivedParquetRow), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, s := range samples {
		row := derivedParquetRow{
			ElapsedS:      s.ElapsedS,
			DistanceM:     valueOrNaN(s.DistanceM),
			PowerW:        valueOrNaN(s.PowerW),
			CadenceRPM:    valueOrNaN(s.CadenceRPM),
			HRBPM:         valueOrNaN(s.HRBPM),
			SpeedMPS:      valueOrNaN(s.SpeedMPS),
			Moving:        s.Moving,
			RollingPowerW: valueOrNaN(s.RollingPowerW),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
