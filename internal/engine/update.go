package engine

import "math"

// update revises bmat and zmat after interpolation point knew is replaced.
// vlag and beta describe the new point, denom is the denominator of the
// updating formula. The first npt+n entries of w are used as scratch.
func (s *state) update(beta, denom float64, knew int, w []float64) {
	n, npt := s.n, s.npt
	nptm := npt - n - 1
	bmat, zmat, vlag := s.bmat, s.zmat, s.vlag

	ztest := 0.0
	for k := 0; k < npt; k++ {
		for j := 0; j < nptm; j++ {
			ztest = math.Max(ztest, math.Abs(zmat[k][j]))
		}
	}
	ztest *= 1e-20

	// Givens rotations zero the knew-th row of zmat except its first
	// column.
	for j := 1; j < nptm; j++ {
		if math.Abs(zmat[knew][j]) > ztest {
			temp := math.Sqrt(zmat[knew][0]*zmat[knew][0] + zmat[knew][j]*zmat[knew][j])
			tempa := zmat[knew][0] / temp
			tempb := zmat[knew][j] / temp
			for i := 0; i < npt; i++ {
				temp = tempa*zmat[i][0] + tempb*zmat[i][j]
				zmat[i][j] = tempa*zmat[i][j] - tempb*zmat[i][0]
				zmat[i][0] = temp
			}
		}
		zmat[knew][j] = 0
	}

	for i := 0; i < npt; i++ {
		w[i] = zmat[knew][0] * zmat[i][0]
	}
	alpha := w[knew]
	tau := vlag[knew]
	vlag[knew]--

	temp := math.Sqrt(denom)
	tempb := zmat[knew][0] / temp
	tempa := tau / temp
	for i := 0; i < npt; i++ {
		zmat[i][0] = tempa*zmat[i][0] - tempb*vlag[i]
	}

	for j := 0; j < n; j++ {
		jp := npt + j
		w[jp] = bmat[knew][j]
		tempa := (alpha*vlag[jp] - tau*w[jp]) / denom
		tempb := (-beta*w[jp] - tau*vlag[jp]) / denom
		for i := 0; i <= jp; i++ {
			bmat[i][j] += tempa*vlag[i] + tempb*w[i]
			if i >= npt {
				bmat[jp][i-npt] = bmat[i][j]
			}
		}
	}
}
