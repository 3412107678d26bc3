package dsp

// Edge filter for the deblocker. The thresholds follow the H.264 style
// alpha/beta/c tables indexed by filter strength.

// MaxQuant is the largest filter strength index.
const MaxQuant = 100

// Filter threshold tables. The clipping bound c uses the same values as
// Betas.
var (
	Alphas = [100]int{
		0, 3, 5, 8, 10, 13, 15, 18, 21, 23, 26, 28, 31, 33, 36, 39, 41,
		44, 46, 49, 52, 54, 57, 59, 62, 64, 67, 70, 72, 75, 77, 80, 82, 85,
		88, 90, 93, 95, 98, 100, 103, 106, 108, 111, 113, 116, 118, 121, 124, 126, 129,
		131, 134, 137, 139, 142, 144, 147, 149, 152, 155, 157, 160, 162, 165, 167, 170, 173,
		175, 178, 180, 183, 185, 188, 191, 193, 196, 198, 201, 203, 206, 209, 211, 214, 216,
		219, 222, 224, 227, 229, 232, 234, 237, 240, 242, 245, 247, 250, 252, 255,
	}
	Betas = [100]int{
		0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8,
		9, 9, 10, 10, 11, 11, 12, 12, 13, 13, 14, 14, 15, 15, 16, 16, 17,
		17, 18, 18, 19, 19, 20, 20, 21, 21, 22, 22, 23, 23, 24, 24, 25, 25,
		26, 26, 27, 27, 28, 28, 29, 29, 30, 30, 31, 31, 32, 32, 33, 33, 34,
		34, 35, 35, 36, 36, 37, 37, 38, 38, 39, 39, 40, 40, 41, 41, 42, 42,
		43, 43, 44, 44, 45, 45, 46, 46, 47, 47, 48, 48, 49, 49, 50,
	}
)

// FilterParams holds the thresholds for one filter strength.
type FilterParams struct {
	Alpha int
	Beta  int
	C     int
}

// LookupFilterParams clamps strength to [0, MaxQuant] and reads alpha, beta
// and c from the tables. The offsets shift the alpha and beta lookups; each
// index is clamped to its table.
func LookupFilterParams(strength, alphaOffset, betaOffset int) FilterParams {
	idx := Clip(strength, 0, MaxQuant)
	return FilterParams{
		Alpha: Alphas[Clip(idx+alphaOffset, 0, len(Alphas)-1)],
		Beta:  Betas[Clip(idx+betaOffset, 0, len(Betas)-1)],
		C:     Betas[Clip(idx, 0, len(Betas)-1)],
	}
}

// FilterEdge filters one line across a block boundary. q0..q2 are the
// samples inside the block starting at the boundary, p0..p2 the samples on
// the other side. It returns the new q0, q1, p0, p1 and whether the edge met
// the filter condition.
func FilterEdge(q0, q1, q2, p0, p1, p2 int, fp FilterParams) (nq0, nq1, np0, np1 int, filtered bool) {
	nq0, nq1, np0, np1 = q0, q1, p0, p1
	if Abs(p0-q0) >= fp.Alpha || Abs(p1-p0) >= fp.Beta || Abs(q0-q1) >= fp.Beta {
		return nq0, nq1, np0, np1, false
	}

	qSide := Abs(q0-q2) < fp.Beta
	pSide := Abs(p0-p2) < fp.Beta
	cd := fp.C + b2i(qSide) + b2i(pSide)

	avg := (q0 + p0 + 1) >> 1
	delta := Clip((((q0-p0)<<2)+(p1-q1)+4)>>3, -cd, cd)
	np0 = Clip(p0+delta, 0, 255)
	nq0 = Clip(q0-delta, 0, 255)
	if qSide {
		nq1 = Clip(q1+Clip((q2+avg-(q1<<1))>>1, -fp.C, fp.C), 0, 255)
	}
	if pSide {
		np1 = Clip(p1+Clip((p2+avg-(p1<<1))>>1, -fp.C, fp.C), 0, 255)
	}
	return nq0, nq1, np0, np1, true
}
