package audio

// Resample converts samples from srcRate to dstRate using linear
// interpolation. Good enough for speech; not intended for music.
func Resample(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(dstRate) / float64(srcRate)
	newLen := int(float64(len(samples)) * ratio)
	result := make([]int16, newLen)

	for i := 0; i < newLen; i++ {
		srcIdx := float64(i) / ratio
		idx := int(srcIdx)
		if idx >= len(samples)-1 {
			result[i] = samples[len(samples)-1]
		} else {
			frac := srcIdx - float64(idx)
			result[i] = int16(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
		}
	}

	return result
}

// ResampleBytes resamples raw PCM16 bytes from srcRate to dstRate.
func ResampleBytes(data []byte, srcRate, dstRate int) []byte {
	if srcRate == dstRate {
		return data
	}
	return FromSamples(Resample(ToSamples(data), srcRate, dstRate))
}
