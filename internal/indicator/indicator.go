// Package indicator computes technical indicators over closing prices.
//
// All functions are pure. Rolling indicators return short slices: element j
// corresponds to input index j+period-1, so the warm-up window is implicit
// in the output length.
package indicator

// SMA calculates the simple moving average.
// Returns a slice of length len(prices)-period+1, or empty if the input is
// shorter than the period.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// EMA calculates the exponential moving average, seeded with the SMA of the
// first period values. Same output alignment as SMA.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)
	multiplier := 2.0 / float64(period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	result = append(result, ema)

	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		result = append(result, ema)
	}

	return result
}

// RSI calculates the relative strength index using rolling means of gains
// and losses over the period. Element j corresponds to input index j+period,
// since the first delta consumes one extra bar.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period+1 {
		return []float64{}
	}

	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)

	result := make([]float64, len(avgGain))
	for i := range avgGain {
		if avgLoss[i] == 0 {
			// No losses in the window: fully overbought by convention.
			result[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		result[i] = 100 - 100/(1+rs)
	}

	return result
}

// MACD calculates the MACD line (EMA fast minus EMA slow) and its signal
// line (EMA of the MACD line). The MACD slice aligns to input index
// j+slow-1; the signal slice to input index j+slow+signal-2.
func MACD(prices []float64, fast, slow, signal int) (macd, signalLine []float64) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(prices) < slow {
		return []float64{}, []float64{}
	}

	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	// Drop the fast EMA's head so both align to the slow warm-up.
	offset := len(fastEMA) - len(slowEMA)
	macd = make([]float64, len(slowEMA))
	for i := range slowEMA {
		macd[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine = EMA(macd, signal)
	return macd, signalLine
}
