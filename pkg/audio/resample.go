package audio

// Resample stretches interleaved stereo samples into dst with the linear interpolation.
// The number of the samples is taken from the len of dst.
func Resample(dst, src []int16) {
	nSrc, nDst := len(src), len(dst)
	if nSrc < 2 || nDst < 2 {
		return
	}
	srcPairs, dstPairs := nSrc>>1, nDst>>1

	if srcPairs == 1 || dstPairs == 1 {
		for i := 0; i < dstPairs; i++ {
			dst[i*2], dst[i*2+1] = src[0], src[1]
		}
		return
	}

	// 16.16 fixed point step
	step := ((srcPairs - 1) << 16) / (dstPairs - 1)
	for i, pos := 0, 0; i < dstPairs-1; i, pos = i+1, pos+step {
		idx := (pos >> 16) << 1
		frac := int32(pos & 0xffff)
		l0, r0 := int32(src[idx]), int32(src[idx+1])
		dst[i*2] = int16(l0 + ((int32(src[idx+2])-l0)*frac)>>16)
		dst[i*2+1] = int16(r0 + ((int32(src[idx+3])-r0)*frac)>>16)
	}
	last := (dstPairs - 1) << 1
	dst[last], dst[last+1] = src[nSrc-2], src[nSrc-1]
}

// ResampledLen returns the interleaved len of n stereo pairs converted between the rates.
func ResampledLen(pairs, srcRate, dstRate int) int {
	if srcRate <= 0 || srcRate == dstRate {
		return pairs * 2
	}
	return pairs * dstRate / srcRate * 2
}
