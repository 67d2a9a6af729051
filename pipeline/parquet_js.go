//go:build js

package pipeline

import "errors"

func marshalDerivedParquet([]DerivedSample) ([]byte, error) {
	return nil, errors.New("parquet output is not available in js builds; use format=csv")
}
