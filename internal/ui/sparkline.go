package ui

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the last width samples as block characters scaled to
// the largest of them. Short input is padded on the left with the lowest
// block.
func Sparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	peak := 0.0
	for _, v := range data {
		peak = max(peak, v)
	}

	out := make([]rune, width)
	pad := width - len(data)
	for i := range out {
		out[i] = sparkBlocks[0]
		if i < pad || peak <= 0 {
			continue
		}
		v := data[i-pad]
		if v <= 0 {
			continue
		}
		idx := min(int(v/peak*float64(len(sparkBlocks)-1)), len(sparkBlocks)-1)
		out[i] = sparkBlocks[idx]
	}
	return string(out)
}
