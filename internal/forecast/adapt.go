package forecast

// MakeCompatible shapes a single observed channel into rows of inputDim
// values. When the model expects more channels than we observe, the value
// is copied into every channel.
//
// This is a compatibility shim for model artifacts trained on several
// channels. It changes what the model's multivariate structure means, and
// only channel 0 of the prediction is used afterwards.
func MakeCompatible(values []float64, inputDim int) [][]float64 {
	if inputDim < 1 {
		inputDim = 1
	}
	rows := make([][]float64, len(values))
	for i, v := range values {
		row := make([]float64, inputDim)
		for c := range row {
			row[c] = v
		}
		rows[i] = row
	}
	return rows
}

// FirstChannel returns channel 0 of each row
func FirstChannel(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) > 0 {
			out[i] = row[0]
		}
	}
	return out
}
